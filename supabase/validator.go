package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/theflex/pms-backend/config"
	"github.com/theflex/pms-backend/tenant"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience is invalid
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrNoSecret is returned when no JWT secret is configured
	ErrNoSecret = errors.New("no supabase jwt secret configured")
)

// Config holds configuration for Validator
type Config struct {
	Secret   string
	Audience string // Optional, skipped when empty
	Issuer   string // Optional, skipped when empty
}

// ConfigFrom builds a validator Config from the application settings.
// SUPABASE_JWT_SECRET wins over SUPABASE_TENANT_JWT_SECRET.
func ConfigFrom(cfg config.SupabaseConfig) Config {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = cfg.TenantJWTSecret
	}

	issuer := ""
	if cfg.URL != "" {
		issuer = strings.TrimSuffix(cfg.URL, "/") + "/auth/v1"
	}

	return Config{
		Secret:   secret,
		Audience: cfg.JWTAudience,
		Issuer:   issuer,
	}
}

// Validator validates HMAC-signed Supabase access tokens
type Validator struct {
	secret []byte
	parser *jwt.Parser
}

// NewValidator creates a new Supabase JWT validator
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Validator{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}, nil
}

// ValidateToken validates a JWT token and returns its full claim set,
// including nested user_metadata and app_metadata objects
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (tenant.ClaimSet, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return nil, ErrInvalidAudience
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return nil, ErrInvalidIssuer
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case !token.Valid:
		return nil, ErrInvalidToken
	}

	return tenant.ClaimSet(claims), nil
}
