package tenant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolver_FromClaims(t *testing.T) {
	r := NewResolver(zap.NewNop())

	tests := []struct {
		name   string
		claims ClaimSet
		want   string
		found  bool
	}{
		{
			name: "user_metadata wins over top level",
			claims: ClaimSet{
				"tenant_id":     "top",
				"user_metadata": map[string]any{"tenant_id": "user-meta"},
				"app_metadata":  map[string]any{"tenant_id": "app-meta"},
			},
			want:  "user-meta",
			found: true,
		},
		{
			name: "app_metadata when user_metadata has none",
			claims: ClaimSet{
				"tenant_id":     "top",
				"user_metadata": map[string]any{"full_name": "Jane"},
				"app_metadata":  map[string]any{"tenant_id": "app-meta"},
			},
			want:  "app-meta",
			found: true,
		},
		{
			name:   "top level as last resort",
			claims: ClaimSet{"tenant_id": "top"},
			want:   "top",
			found:  true,
		},
		{
			name: "empty string is skipped",
			claims: ClaimSet{
				"user_metadata": map[string]any{"tenant_id": ""},
				"tenant_id":     "top",
			},
			want:  "top",
			found: true,
		},
		{
			name: "explicit null is skipped",
			claims: ClaimSet{
				"user_metadata": map[string]any{"tenant_id": nil},
				"app_metadata":  map[string]any{"tenant_id": "app-meta"},
			},
			want:  "app-meta",
			found: true,
		},
		{
			name: "metadata that is not an object is skipped",
			claims: ClaimSet{
				"user_metadata": "oops",
				"tenant_id":     "top",
			},
			want:  "top",
			found: true,
		},
		{
			name:   "numeric tenant id",
			claims: ClaimSet{"app_metadata": map[string]any{"tenant_id": float64(42)}},
			want:   "42",
			found:  true,
		},
		{
			name:   "json.Number tenant id",
			claims: ClaimSet{"tenant_id": json.Number("7")},
			want:   "7",
			found:  true,
		},
		{
			name:   "non-scalar tenant id is absent",
			claims: ClaimSet{"tenant_id": []any{"a"}},
			found:  false,
		},
		{
			name: "all locations empty",
			claims: ClaimSet{
				"tenant_id":     "",
				"user_metadata": map[string]any{"tenant_id": nil},
				"app_metadata":  map[string]any{},
			},
			found: false,
		},
		{
			name:   "nil claims",
			claims: nil,
			found:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.FromClaims(tt.claims)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_FromUserRecord(t *testing.T) {
	r := NewResolver(zap.NewNop())

	tests := []struct {
		name  string
		user  ClaimSet
		want  string
		found bool
	}{
		{
			name: "top level wins over metadata",
			user: ClaimSet{
				"tenant_id":     "top",
				"user_metadata": map[string]any{"tenant_id": "user-meta"},
			},
			want:  "top",
			found: true,
		},
		{
			name: "user_metadata before app_metadata",
			user: ClaimSet{
				"user_metadata": map[string]any{"tenant_id": "user-meta"},
				"app_metadata":  map[string]any{"tenant_id": "app-meta"},
			},
			want:  "user-meta",
			found: true,
		},
		{
			name: "present but empty top level keeps probing",
			user: ClaimSet{
				"tenant_id":    "",
				"app_metadata": map[string]any{"tenant_id": "app-meta"},
			},
			want:  "app-meta",
			found: true,
		},
		{
			name: "null top level keeps probing",
			user: ClaimSet{
				"tenant_id":     nil,
				"user_metadata": ClaimSet{"tenant_id": "user-meta"},
			},
			want:  "user-meta",
			found: true,
		},
		{
			name:  "nothing found",
			user:  ClaimSet{"email": "guest@example.com"},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.FromUserRecord(tt.user)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_OrdersDiffer(t *testing.T) {
	r := NewResolver(zap.NewNop())
	both := ClaimSet{
		"tenant_id":     "top",
		"user_metadata": map[string]any{"tenant_id": "user-meta"},
	}

	fromClaims, _ := r.FromClaims(both)
	fromUser, _ := r.FromUserRecord(both)

	assert.Equal(t, "user-meta", fromClaims)
	assert.Equal(t, "top", fromUser)
}

func TestResolver_Logging(t *testing.T) {
	t.Run("claims miss logs a warning with key names only", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		r := NewResolver(zap.New(core))

		_, ok := r.FromClaims(ClaimSet{"email": "secret@example.com", "sub": "abc"})
		assert.False(t, ok)

		entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
		if assert.Len(t, entries, 1) {
			assert.Equal(t, []interface{}{"email", "sub"}, entries[0].ContextMap()["claim_keys"])
			assert.NotContains(t, entries[0].Message, "secret@example.com")
		}
	})

	t.Run("user record miss does not log", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		r := NewResolver(zap.New(core))

		_, ok := r.FromUserRecord(ClaimSet{})
		assert.False(t, ok)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("claims are not mutated", func(t *testing.T) {
		r := NewResolver(nil)
		claims := ClaimSet{"user_metadata": map[string]any{"tenant_id": "t1"}}
		_, _ = r.FromClaims(claims)
		assert.Equal(t, ClaimSet{"user_metadata": map[string]any{"tenant_id": "t1"}}, claims)
	})
}
