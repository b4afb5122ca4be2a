package tokenmanagement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/theflex/pms-backend/config"
)

var (
	// ErrNotConfigured is returned when TOKEN_SERVICE_URL is not set
	ErrNotConfigured = errors.New("token management service not configured")

	// ErrUnexpectedStatus is returned for any non-200 response
	ErrUnexpectedStatus = errors.New("token management service returned unexpected status")

	// ErrEmptyToken is returned when the response carries no token
	ErrEmptyToken = errors.New("token management service returned no token")
)

// tokenResponse represents the token lookup response
type tokenResponse struct {
	City  string `json:"city"`
	Token string `json:"token"`
}

// Client fetches per-city Hostaway tokens from the token-management service
type Client struct {
	baseURL        string
	serviceRoleKey string
	httpClient     *http.Client
}

// NewClient creates a new token-management client
func NewClient(cfg config.TokenServiceConfig, serviceRoleKey string) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.URL, "/"),
		serviceRoleKey: serviceRoleKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetHostawayTokenForCity returns the Hostaway API token for a city
func (c *Client) GetHostawayTokenForCity(ctx context.Context, city string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	tokenURL := c.baseURL + "/hostaway/tokens/" + url.PathEscape(city)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))
	if c.serviceRoleKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	// Bodies may echo credentials, so only the status is reported
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.Token == "" {
		return "", ErrEmptyToken
	}

	return tokenResp.Token, nil
}

// Unconfigured is used when no token-management service is deployed.
// Every lookup fails so callers go straight to their fallback.
type Unconfigured struct{}

// GetHostawayTokenForCity always returns ErrNotConfigured
func (Unconfigured) GetHostawayTokenForCity(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}
