package tenant

import (
	"encoding/json"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// ClaimSet is a decoded JWT payload or a user record. It is untrusted and
// only partially structured; resolvers never modify it.
type ClaimSet map[string]any

const (
	tenantIDKey     = "tenant_id"
	userMetadataKey = "user_metadata"
	appMetadataKey  = "app_metadata"
)

// probe reads tenant_id from a ClaimSet, optionally inside a nested metadata object
type probe func(ClaimSet) (string, bool)

func topLevel(c ClaimSet) (string, bool) {
	return stringValue(c[tenantIDKey])
}

func nested(key string) probe {
	return func(c ClaimSet) (string, bool) {
		meta, ok := asMap(c[key])
		if !ok {
			return "", false
		}
		return stringValue(meta[tenantIDKey])
	}
}

var (
	// Token payloads carry the tenant in metadata first
	claimsOrder = []probe{nested(userMetadataKey), nested(appMetadataKey), topLevel}

	// User records carry it at the top level first
	userRecordOrder = []probe{topLevel, nested(userMetadataKey), nested(appMetadataKey)}
)

// Resolver extracts tenant IDs from claims and user records
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a new Resolver
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// FromClaims extracts the tenant ID from a decoded token payload.
// Lookup order: user_metadata.tenant_id, app_metadata.tenant_id, tenant_id.
func (r *Resolver) FromClaims(claims ClaimSet) (string, bool) {
	if id, ok := firstMatch(claims, claimsOrder); ok {
		return id, true
	}
	r.logger.Warn("no tenant_id found in token payload",
		zap.Strings("claim_keys", claimKeys(claims)))
	return "", false
}

// FromUserRecord extracts the tenant ID from a user record.
// Lookup order: tenant_id, user_metadata.tenant_id, app_metadata.tenant_id.
func (r *Resolver) FromUserRecord(user ClaimSet) (string, bool) {
	return firstMatch(user, userRecordOrder)
}

func firstMatch(c ClaimSet, order []probe) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, p := range order {
		if id, ok := p(c); ok {
			return id, true
		}
	}
	return "", false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case ClaimSet:
		return m, true
	default:
		return nil, false
	}
}

// stringValue treats nil, empty strings and non-scalar values as absent
func stringValue(v any) (string, bool) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	default:
		return "", false
	}
	return s, s != ""
}

func claimKeys(c ClaimSet) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
