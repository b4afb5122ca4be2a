package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config represents the complete application configuration.
// It is built once at process start and passed explicitly to consumers.
type Config struct {
	Environment string `validate:"required"`
	AppName     string
	Debug       bool
	FrontendURL string `validate:"omitempty,url"`
	BackendURL  string `validate:"omitempty,url"`
	CORSOrigins []string

	Server        ServerConfig
	Supabase      SupabaseConfig
	Security      SecurityConfig
	Hostaway      HostawayConfig
	TokenService  TokenServiceConfig
	Integrations  IntegrationsConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SupabaseConfig holds Supabase project and connection settings
type SupabaseConfig struct {
	URL                      string `validate:"required,url"`
	ServiceRoleKey           string `validate:"required"`
	AnonKey                  string `validate:"required"`
	JWTSecret                string
	TenantJWTSecret          string
	JWTAudience              string
	StorageBucket            string
	UpsellStorageBucket      string
	MaxConcurrentConnections int `validate:"min=1"`
	ConnectionTimeout        time.Duration
	PoolRecycleInterval      time.Duration
}

// SecurityConfig holds signing and encryption secrets
type SecurityConfig struct {
	SecretKey                string `validate:"required"`
	Algorithm                string
	AccessTokenExpireMinutes int `validate:"min=1"`
	TokenEncryptionKey       string `validate:"required"`
	CronSecret               string
}

// HostawayConfig holds the deprecated per-city token blob.
// Format: JSON object {"HOSTAWAY_API_LONDON":"..."} or
// space separated "HOSTAWAY_API_LONDON:token HOSTAWAY_API_PARIS:token".
type HostawayConfig struct {
	TokensBlob string
}

// TokenServiceConfig holds the token-management service client settings
type TokenServiceConfig struct {
	URL        string `validate:"omitempty,url"`
	Timeout    time.Duration
	MaxWorkers int64 `validate:"min=1"`
}

// IntegrationsConfig holds third-party integration credentials
type IntegrationsConfig struct {
	SendGridAPIKey    string
	SendGridFromEmail string `validate:"omitempty,email"`

	N8NWebhookURL              string `validate:"omitempty,url"`
	N8NCheckinCrisisWebhookURL string `validate:"omitempty,url"`
	N8NVerificationWebhookURL  string `validate:"required,url"`
	N8NWebhookSecret           string

	OpenAIAPIKey string `validate:"required"`

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string

	GoogleMapsAPIKey string
}

// DatabaseConfig holds PostgreSQL connection pool configuration.
// An empty ConnectionString disables the database.
type DatabaseConfig struct {
	ConnectionString string
	PoolSize         int `validate:"min=1"`
	MaxOverflow      int `validate:"min=0"`
	PoolTimeout      time.Duration
	PoolRecycle      time.Duration
	MaxRetries       int `validate:"min=0"`
	RetryDelay       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int `validate:"min=1,max=65535"`
	DB       int `validate:"min=0"`
	Password string
	URL      string // Full URL, takes precedence over the individual fields
	Enabled  bool   // REDIS_URL or REDIS_HOST was set explicitly
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"required,oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`
}

const defaultCronSecret = "dev-secret"

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:5173",
	"http://localhost:5174",
	"https://new-pms.netlify.app",
	"https://pms.theflex.global",
	"https://new-pms.theflex.global/",
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists; real environment variables win
	_ = godotenv.Load(".env")

	debug := getEnvAsBool("DEBUG", false)
	defaultLevel := "info"
	if debug {
		defaultLevel = "debug"
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", ""),
		AppName:     getEnv("APP_NAME", "Flex PMS Backend"),
		Debug:       debug,
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:  getEnv("BACKEND_URL", "http://localhost:8000"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", defaultCORSOrigins),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Supabase: SupabaseConfig{
			URL:                      getEnv("SUPABASE_URL", ""),
			ServiceRoleKey:           getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			AnonKey:                  getEnv("SUPABASE_ANON_KEY", ""),
			JWTSecret:                getEnv("SUPABASE_JWT_SECRET", ""),
			TenantJWTSecret:          getEnv("SUPABASE_TENANT_JWT_SECRET", ""),
			JWTAudience:              getEnv("SUPABASE_JWT_AUDIENCE", "authenticated"),
			StorageBucket:            getEnv("SUPABASE_STORAGE_BUCKET", "verification-images"),
			UpsellStorageBucket:      getEnv("SUPABASE_UPSELL_STORAGE_BUCKET", "upsell-images"),
			MaxConcurrentConnections: getEnvAsInt("SUPABASE_MAX_CONCURRENT_CONNECTIONS", 150),
			ConnectionTimeout:        getEnvAsSeconds("SUPABASE_CONNECTION_TIMEOUT", 30*time.Second),
			PoolRecycleInterval:      getEnvAsSeconds("SUPABASE_POOL_RECYCLE_INTERVAL", 1800*time.Second),
		},
		Security: SecurityConfig{
			SecretKey:                getEnv("SECRET_KEY", ""),
			Algorithm:                getEnv("ALGORITHM", "HS256"),
			AccessTokenExpireMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 10080),
			TokenEncryptionKey:       getEnv("TOKEN_ENCRYPTION_KEY", ""),
			CronSecret:               getEnv("CRON_SECRET", ""),
		},
		Hostaway: HostawayConfig{
			TokensBlob: getEnv("HOSTAWAY_TOKENS", ""),
		},
		TokenService: TokenServiceConfig{
			URL:        getEnv("TOKEN_SERVICE_URL", ""),
			Timeout:    getEnvAsDuration("TOKEN_SERVICE_TIMEOUT", 10*time.Second),
			MaxWorkers: int64(getEnvAsInt("TOKEN_SERVICE_MAX_WORKERS", 8)),
		},
		Integrations: IntegrationsConfig{
			SendGridAPIKey:             getEnv("SENDGRID_API_KEY", ""),
			SendGridFromEmail:          getEnv("SENDGRID_FROM_EMAIL", ""),
			N8NWebhookURL:              getEnv("N8N_WEBHOOK_URL", "https://n8n.theflex.global/webhook/2b770e31-cedd-408f-ae28-afa8b23c598d"),
			N8NCheckinCrisisWebhookURL: getEnv("N8N_CHECKIN_CRISIS_WEBHOOK_URL", ""),
			N8NVerificationWebhookURL:  getEnv("N8N_VERIFICATION_WEBHOOK_URL", ""),
			N8NWebhookSecret:           getEnv("N8N_WEBHOOK_SECRET", ""),
			OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
			StripeSecretKey:            getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey:       getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			StripeWebhookSecret:        getEnv("STRIPE_WEBHOOK_SECRET", ""),
			GoogleMapsAPIKey:           getEnv("GOOGLE_MAPS_API_KEY", ""),
		},
		Database: DatabaseConfig{
			ConnectionString: getEnv("DATABASE_URL", ""),
			PoolSize:         getEnvAsInt("DATABASE_POOL_SIZE", 20),
			MaxOverflow:      getEnvAsInt("DATABASE_MAX_OVERFLOW", 30),
			PoolTimeout:      getEnvAsSeconds("DATABASE_POOL_TIMEOUT", 30*time.Second),
			PoolRecycle:      getEnvAsSeconds("DATABASE_POOL_RECYCLE", time.Hour),
			MaxRetries:       getEnvAsInt("DATABASE_MAX_RETRIES", 3),
			RetryDelay:       getEnvAsSeconds("DATABASE_RETRY_DELAY", 500*time.Millisecond),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Password: getEnv("REDIS_PASSWORD", ""),
			URL:      getEnv("REDIS_URL", ""),
			Enabled:  lookupEnv("REDIS_URL") != "" || lookupEnv("REDIS_HOST") != "",
		},
		Observability: ObservabilityConfig{
			LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", defaultLevel)),
			LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	// Supabase tokens cannot be verified without at least one secret outside development
	if !c.IsDevelopment() && c.Supabase.JWTSecret == "" && c.Supabase.TenantJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET or SUPABASE_TENANT_JWT_SECRET is required in %s", c.Environment)
	}

	if c.IsProduction() && c.Security.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required in production")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// CronSecretOrDefault returns the cron secret, falling back to the development default
func (c *Config) CronSecretOrDefault() string {
	if c.Security.CronSecret != "" {
		return c.Security.CronSecret
	}
	return defaultCronSecret
}

// LogSummary logs which critical secrets are present. Only lengths are logged.
func (c *Config) LogSummary(logger *zap.Logger) {
	critical := []struct {
		name  string
		value string
	}{
		{"TOKEN_ENCRYPTION_KEY", c.Security.TokenEncryptionKey},
		{"SUPABASE_URL", c.Supabase.URL},
		{"SUPABASE_SERVICE_ROLE_KEY", c.Supabase.ServiceRoleKey},
		{"SUPABASE_JWT_SECRET", c.Supabase.JWTSecret},
		{"SECRET_KEY", c.Security.SecretKey},
	}

	for _, v := range critical {
		if v.value == "" {
			logger.Warn("setting not set", zap.String("name", v.name))
			continue
		}
		logger.Info("setting loaded",
			zap.String("name", v.name),
			zap.Int("length", len(v.value)))
	}

	logger.Info("configuration loaded",
		zap.String("app", c.AppName),
		zap.String("environment", c.Environment),
		zap.Bool("hostaway_tokens_blob", c.Hostaway.TokensBlob != ""),
		zap.Bool("token_service", c.TokenService.URL != ""),
		zap.Bool("database", c.Database.Enabled()),
		zap.String("redis", c.Redis.LogString()))
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a database connection string is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.ConnectionString != ""
}

// MaxOpenConns returns the pool size plus the allowed overflow
func (c *DatabaseConfig) MaxOpenConns() int {
	return c.PoolSize + c.MaxOverflow
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	u, err := url.Parse(c.ConnectionString)
	if err != nil || u.Host == "" {
		return "host=<from DATABASE_URL>"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
}

// ConnectionURL returns the Redis connection URL. REDIS_URL wins when set.
func (c *RedisConfig) ConnectionURL() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "redis",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	if c.Password != "" {
		u.User = url.UserPassword("", c.Password)
	}
	return u.String()
}

// LogString returns the Redis address without credentials
func (c *RedisConfig) LogString() string {
	u, err := url.Parse(c.ConnectionURL())
	if err != nil {
		return "<invalid REDIS_URL>"
	}
	return u.Redacted()
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := lookupEnv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8000
}

// lookupEnv reads KEY, then key, matching the case-insensitive settings loader
func lookupEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return os.Getenv(strings.ToLower(key))
}

func getEnv(key, defaultValue string) string {
	if value := lookupEnv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := lookupEnv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := lookupEnv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := lookupEnv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSeconds accepts plain seconds ("30", "0.5") or a Go duration ("500ms")
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := lookupEnv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return getEnvAsDuration(key, defaultValue)
}

// getEnvAsList accepts a JSON array or a comma separated list
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := strings.TrimSpace(lookupEnv(key))
	if valueStr == "" {
		return defaultValue
	}
	var list []string
	if strings.HasPrefix(valueStr, "[") {
		if err := json.Unmarshal([]byte(valueStr), &list); err == nil {
			return list
		}
		return defaultValue
	}
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
