package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/theflex/pms-backend/app"
	"github.com/theflex/pms-backend/handlers"
	"github.com/theflex/pms-backend/middleware"
	"github.com/theflex/pms-backend/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.AsyncScope)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Cron-Secret", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := deps.HealthHandler()
	tenants := handlers.NewTenantHandler(deps.Tenants, deps.Users, deps.Logger)
	hostaway := handlers.NewHostawayHandler(deps.Hostaway, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Authenticated user endpoints
		r.Route("/me", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.ExtractTenant)
			r.Get("/tenant", tenants.HandleCurrentTenant)
		})

		// Internal endpoints for cron jobs and sibling services
		r.Route("/internal", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireCronSecret)
			r.Post("/tenants/resolve", tenants.HandleResolveUserTenant)
			r.Get("/tenants/users/{userID}", tenants.HandleUserTenant)
			r.Get("/hostaway/cities", hostaway.HandleListCities)
			r.Get("/hostaway/cities/{city}/token", hostaway.HandleTokenStatus)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
