package hostaway

import (
	"context"
	"errors"
	"fmt"

	"github.com/theflex/pms-backend/internal/syncbridge"
	"go.uber.org/zap"
)

var (
	// ErrDelegationFailed wraps any failure of the token-management lookup
	ErrDelegationFailed = errors.New("token management lookup failed")

	// ErrTokenNotFound is returned when no token exists for a city key
	ErrTokenNotFound = errors.New("hostaway token not found")
)

// TokenService is the token-management collaborator that owns per-city
// Hostaway credentials.
type TokenService interface {
	GetHostawayTokenForCity(ctx context.Context, city string) (string, error)
}

// Service resolves Hostaway API tokens per city.
//
// Deprecated: use the token-management service directly. Service is kept for
// callers that still expect a best-effort lookup with the HOSTAWAY_TOKENS
// fallback.
type Service struct {
	tokens TokenService
	blob   string
	runner *syncbridge.Runner
	logger *zap.Logger
}

// NewService creates a new Service. blob is the raw HOSTAWAY_TOKENS value.
func NewService(tokens TokenService, blob string, runner *syncbridge.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tokens: tokens,
		blob:   blob,
		runner: runner,
		logger: logger,
	}
}

// TokenForCity returns the Hostaway token for a city.
// The token-management service is asked first; on any failure the
// HOSTAWAY_TOKENS blob is parsed and searched. A false result is routine and
// means the credential is unavailable for this city.
func (s *Service) TokenForCity(ctx context.Context, city string) (string, bool) {
	token, err := s.delegate(ctx, city)
	if err == nil {
		return token, true
	}

	s.logger.Warn("falling back to HOSTAWAY_TOKENS",
		zap.String("city", city),
		zap.Error(err))

	token, err = s.lookup(city)
	if err != nil {
		return "", false
	}
	return token, true
}

// AvailableKeys returns the city keys present in the HOSTAWAY_TOKENS blob
func (s *Service) AvailableKeys() []string {
	table, _, err := parseTokenBlob(s.blob)
	if err != nil {
		return []string{}
	}
	return table.Keys()
}

func (s *Service) delegate(ctx context.Context, city string) (string, error) {
	if s.tokens == nil {
		return "", fmt.Errorf("%w: no token service configured", ErrDelegationFailed)
	}

	token, err := syncbridge.Run(ctx, s.runner, func(ctx context.Context) (string, error) {
		return s.tokens.GetHostawayTokenForCity(ctx, city)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDelegationFailed, err)
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrDelegationFailed)
	}
	return token, nil
}

// lookup parses the blob on every call; the table is never cached
func (s *Service) lookup(city string) (string, error) {
	table, format, err := parseTokenBlob(s.blob)
	switch {
	case errors.Is(err, ErrEmptyBlob):
		s.logger.Warn("HOSTAWAY_TOKENS environment variable is empty or not set")
		return "", err
	case err != nil:
		s.logger.Error("could not parse HOSTAWAY_TOKENS in any known format",
			zap.Int("length", len(s.blob)),
			zap.Error(err))
		return "", err
	}

	s.logger.Debug("parsed HOSTAWAY_TOKENS",
		zap.String("format", format),
		zap.Int("count", len(table)),
		zap.Strings("keys", table.Keys()))

	key := CityKey(city)
	token, ok := table[key]
	if !ok || token == "" {
		s.logger.Warn("no token found for city",
			zap.String("city", city),
			zap.String("key", key),
			zap.Strings("available_keys", table.Keys()))
		return "", fmt.Errorf("%w: %s", ErrTokenNotFound, key)
	}

	s.logger.Debug("found token for city",
		zap.String("city", city),
		zap.String("key", key),
		zap.Int("length", len(token)))
	return token, nil
}
