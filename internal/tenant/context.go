// internal/tenant/context.go
package tenant

import (
	"context"
	"errors"
)

var (
	// ErrTenantNotFound means a host or credential maps to no active store.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrCredentialInvalid means the API key header is missing or malformed.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrTenantNotResolved means tenant-owned data was requested without a bound store.
	ErrTenantNotResolved = errors.New("tenant not resolved")
)

type contextKey string

const (
	storeIDKey  contextKey = "store_id"
	apiKeyIDKey contextKey = "api_key_id"
)

// WithStore binds the resolved store id to the request context.
func WithStore(ctx context.Context, storeID int64) context.Context {
	return context.WithValue(ctx, storeIDKey, storeID)
}

// StoreFromContext returns the bound store id, if any.
func StoreFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(storeIDKey).(int64)
	return id, ok
}

// WithAPIKey records which credential authenticated the request.
func WithAPIKey(ctx context.Context, keyID int64) context.Context {
	return context.WithValue(ctx, apiKeyIDKey, keyID)
}

// APIKeyFromContext returns the id of the API key that authenticated the
// request, if any.
func APIKeyFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(apiKeyIDKey).(int64)
	return id, ok
}
