package tokenmanagement

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theflex/pms-backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.TokenServiceConfig{URL: server.URL + "/", Timeout: time.Second}, "service-role")
}

func TestClient_GetHostawayTokenForCity(t *testing.T) {
	t.Run("returns token on success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/hostaway/tokens/london", r.URL.Path)
			assert.Equal(t, "Bearer service-role", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"city":"london","token":"abc123"}`))
		})

		token, err := client.GetHostawayTokenForCity(context.Background(), "london")
		require.NoError(t, err)
		assert.Equal(t, "abc123", token)
	})

	t.Run("escapes city in path", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/hostaway/tokens/new%20york", r.URL.EscapedPath())
			_, _ = w.Write([]byte(`{"token":"ny"}`))
		})

		token, err := client.GetHostawayTokenForCity(context.Background(), "new york")
		require.NoError(t, err)
		assert.Equal(t, "ny", token)
	})

	t.Run("forwards chi request id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "req-42", r.Header.Get("X-Request-ID"))
			_, _ = w.Write([]byte(`{"token":"abc123"}`))
		})

		ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
		_, err := client.GetHostawayTokenForCity(ctx, "london")
		require.NoError(t, err)
	})

	t.Run("generates request id when absent", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
			assert.NoError(t, err)
			_, _ = w.Write([]byte(`{"token":"abc123"}`))
		})

		_, err := client.GetHostawayTokenForCity(context.Background(), "london")
		require.NoError(t, err)
	})

	t.Run("non-200 status does not leak body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"secret-token-value"}`))
		})

		_, err := client.GetHostawayTokenForCity(context.Background(), "london")
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
		assert.NotContains(t, err.Error(), "secret-token-value")
	})

	t.Run("empty token is an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"city":"london","token":""}`))
		})

		_, err := client.GetHostawayTokenForCity(context.Background(), "london")
		assert.ErrorIs(t, err, ErrEmptyToken)
	})

	t.Run("invalid json is an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})

		_, err := client.GetHostawayTokenForCity(context.Background(), "london")
		assert.Error(t, err)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.GetHostawayTokenForCity(ctx, "london")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("missing base url", func(t *testing.T) {
		client := NewClient(config.TokenServiceConfig{}, "service-role")
		_, err := client.GetHostawayTokenForCity(context.Background(), "london")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.GetHostawayTokenForCity(context.Background(), "london")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
