// internal/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/tenant"
)

// Directory is the tenant lookup used by the middlewares.
type Directory interface {
	StoreByHost(ctx context.Context, host string) (model.Store, error)
	StoreByID(ctx context.Context, id int64) (model.Store, error)
	StoreByAPIKey(ctx context.Context, key string) (model.Store, model.APIKey, error)
}

type contextKey string

const (
	claimsKey contextKey = "admin_claims"
	tokenKey  contextKey = "api_token"
)

// TokenResolver checks api host bearer tokens.
type TokenResolver interface {
	Resolve(ctx context.Context, plain string) (model.APIToken, error)
}

// TokenFromContext returns the bearer token set by TokenGuard.
func TokenFromContext(ctx context.Context) (model.APIToken, bool) {
	if ctx == nil {
		return model.APIToken{}, false
	}
	t, ok := ctx.Value(tokenKey).(model.APIToken)
	return t, ok
}

// ClaimsFromContext returns the admin session claims set by AdminSession.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ResolveStore binds the store registered at the request host. Hosts without
// publicPrefix and unknown hosts pass through unbound; it never rejects.
func ResolveStore(dir Directory, publicPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(logging.HostOnly(r.Host))
			if !strings.HasPrefix(host, publicPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			store, err := dir.StoreByHost(ctx, host)
			switch {
			case err == nil:
				metrics.TenantResolutions.WithLabelValues("www", "resolved").Inc()
				ctx = tenant.WithStore(ctx, store.ID)
				ctx = logging.Enrich(ctx, zap.Int64("store_id", store.ID))
			case errors.Is(err, tenant.ErrTenantNotFound):
				metrics.TenantResolutions.WithLabelValues("www", "not_found").Inc()
			default:
				metrics.TenantResolutions.WithLabelValues("www", "error").Inc()
				logging.FromContext(ctx).Error("store resolution failed", zap.String("lookup_host", host), zap.Error(err))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyGuard requires a valid credential in header. Every rejection looks the
// same to the caller; backing store failures are a 500, not a 401.
func APIKeyGuard(dir Directory, header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logging.FromContext(ctx)

			key := strings.TrimSpace(r.Header.Get(header))
			if key == "" || len(key) > MaxAPIKeyLength {
				metrics.TenantResolutions.WithLabelValues("api", "unauthorized").Inc()
				log.Warn("api key rejected", zap.Error(tenant.ErrCredentialInvalid))
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			store, apiKey, err := dir.StoreByAPIKey(ctx, key)
			if errors.Is(err, tenant.ErrTenantNotFound) {
				metrics.TenantResolutions.WithLabelValues("api", "unauthorized").Inc()
				log.Warn("api key rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if err != nil {
				metrics.TenantResolutions.WithLabelValues("api", "error").Inc()
				log.Error("api key lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			metrics.TenantResolutions.WithLabelValues("api", "resolved").Inc()
			ctx = tenant.WithStore(ctx, store.ID)
			ctx = tenant.WithAPIKey(ctx, apiKey.ID)
			ctx = logging.Enrich(ctx, zap.Int64("store_id", store.ID), zap.Int64("api_key_id", apiKey.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenGuard requires an api bearer token whose store is still active and
// binds that store.
func TokenGuard(tokens TokenResolver, dir Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logging.FromContext(ctx)

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				metrics.TenantResolutions.WithLabelValues("api", "unauthorized").Inc()
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			tok, err := tokens.Resolve(ctx, strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err == nil {
				_, err = dir.StoreByID(ctx, tok.StoreID)
			}
			switch {
			case err == nil:
			case errors.Is(err, ErrInvalidCredentials), errors.Is(err, tenant.ErrTenantNotFound):
				metrics.TenantResolutions.WithLabelValues("api", "unauthorized").Inc()
				log.Warn("api token rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			default:
				metrics.TenantResolutions.WithLabelValues("api", "error").Inc()
				log.Error("api token lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			metrics.TenantResolutions.WithLabelValues("api", "resolved").Inc()
			ctx = tenant.WithStore(ctx, tok.StoreID)
			ctx = context.WithValue(ctx, tokenKey, tok)
			ctx = logging.Enrich(ctx,
				zap.Int64("store_id", tok.StoreID),
				zap.Int64("user_id", tok.UserID),
				zap.Int64("api_token_id", tok.ID),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIGuard accepts either credential on the api host. A request carrying the
// key header is judged by APIKeyGuard alone; otherwise a bearer token goes to
// TokenGuard. With tokens nil only API keys are accepted.
func APIGuard(dir Directory, tokens TokenResolver, header string) func(http.Handler) http.Handler {
	keyGuard := APIKeyGuard(dir, header)
	if tokens == nil {
		return keyGuard
	}
	tokenGuard := TokenGuard(tokens, dir)
	return func(next http.Handler) http.Handler {
		byKey, byToken := keyGuard(next), tokenGuard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(header) == "" && strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				byToken.ServeHTTP(w, r)
				return
			}
			byKey.ServeHTTP(w, r)
		})
	}
}

// AdminSession validates the bearer session token and publishes the selected
// store, when the token carries one. The store is re-checked on every request:
// a store archived or deleted after selection is left unbound, so
// EnsureStoreSelected turns the request away.
func AdminSession(sessions *Sessions, dir Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := sessions.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logging.FromContext(r.Context()).Warn("admin session rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			fields := []zap.Field{zap.Int64("user_id", claims.UserID)}
			if claims.StoreID != nil {
				store, err := dir.StoreByID(ctx, *claims.StoreID)
				switch {
				case err == nil:
					metrics.TenantResolutions.WithLabelValues("admin", "resolved").Inc()
					ctx = tenant.WithStore(ctx, store.ID)
					fields = append(fields, zap.Int64("store_id", store.ID))
				case errors.Is(err, tenant.ErrTenantNotFound):
					metrics.TenantResolutions.WithLabelValues("admin", "not_found").Inc()
					logging.FromContext(ctx).Warn("selected store is no longer active", zap.Int64("store_id", *claims.StoreID))
				default:
					metrics.TenantResolutions.WithLabelValues("admin", "error").Inc()
					logging.FromContext(ctx).Error("selected store lookup failed", zap.Int64("store_id", *claims.StoreID), zap.Error(err))
					writeError(w, http.StatusInternalServerError, "Internal Server Error")
					return
				}
			}
			ctx = logging.Enrich(ctx, fields...)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EnsureStoreSelected stops admin requests that have not picked a store yet.
func EnsureStoreSelected(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenant.StoreFromContext(r.Context()); !ok {
			writeError(w, http.StatusConflict, "store not selected")
			return
		}
		next.ServeHTTP(w, r)
	})
}
