package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/theflex/pms-backend/internal/observability"
	"github.com/theflex/pms-backend/services/hostaway"
	"github.com/theflex/pms-backend/utils"
	"go.uber.org/zap"
)

// HostawayTokenResolver resolves per-city Hostaway tokens
type HostawayTokenResolver interface {
	TokenForCity(ctx context.Context, city string) (string, bool)
	AvailableKeys() []string
}

// TokenStatusResponse reports whether a city has a token. The token itself is
// never returned.
type TokenStatusResponse struct {
	City      string `json:"city"`
	Key       string `json:"key"`
	Available bool   `json:"available"`
	Length    int    `json:"length"`
}

// CityKeysResponse lists the city keys in the fallback blob
type CityKeysResponse struct {
	Keys []string `json:"keys"`
}

// HostawayHandler handles Hostaway credential diagnostics
type HostawayHandler struct {
	tokens HostawayTokenResolver
	logger *zap.Logger
}

// NewHostawayHandler creates a new HostawayHandler
func NewHostawayHandler(tokens HostawayTokenResolver, logger *zap.Logger) *HostawayHandler {
	return &HostawayHandler{
		tokens: tokens,
		logger: logger,
	}
}

// HandleTokenStatus handles GET /api/v1/internal/hostaway/cities/{city}/token
func (h *HostawayHandler) HandleTokenStatus(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	if err := utils.ValidateCity(city); err != nil {
		_ = utils.WriteValidationError(w, err)
		return
	}

	token, ok := h.tokens.TokenForCity(r.Context(), city)

	observability.WithRequest(r.Context(), h.logger).Info("hostaway token status",
		zap.String("city", city),
		zap.Bool("available", ok))

	_ = utils.WriteOK(w, TokenStatusResponse{
		City:      city,
		Key:       hostaway.CityKey(city),
		Available: ok,
		Length:    len(token),
	})
}

// HandleListCities handles GET /api/v1/internal/hostaway/cities
func (h *HostawayHandler) HandleListCities(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, CityKeysResponse{Keys: h.tokens.AvailableKeys()})
}
