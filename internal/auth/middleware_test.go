package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
	"storefront/internal/tenant"
)

type fakeDirectory struct {
	hosts    map[string]int64
	keys     map[string]int64
	inactive map[int64]bool
	err      error
}

func (f *fakeDirectory) StoreByID(_ context.Context, id int64) (model.Store, error) {
	if f.err != nil {
		return model.Store{}, f.err
	}
	for _, known := range f.hosts {
		if known == id && !f.inactive[id] {
			return model.Store{ID: id, Status: model.StatusActive}, nil
		}
	}
	return model.Store{}, tenant.ErrTenantNotFound
}

func (f *fakeDirectory) StoreByHost(_ context.Context, host string) (model.Store, error) {
	if f.err != nil {
		return model.Store{}, f.err
	}
	id, ok := f.hosts[host]
	if !ok {
		return model.Store{}, tenant.ErrTenantNotFound
	}
	return model.Store{ID: id, ShopDomain: host, Status: model.StatusActive}, nil
}

func (f *fakeDirectory) StoreByAPIKey(_ context.Context, key string) (model.Store, model.APIKey, error) {
	if f.err != nil {
		return model.Store{}, model.APIKey{}, f.err
	}
	id, ok := f.keys[key]
	if !ok {
		return model.Store{}, model.APIKey{}, tenant.ErrTenantNotFound
	}
	return model.Store{ID: id, Status: model.StatusActive}, model.APIKey{ID: 100 + id, StoreID: id, Status: model.StatusActive}, nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		hosts:    map[string]int64{"www.acme.example.com": 42, "www.globex.example.com": 43},
		keys:     map[string]int64{"sk_validtoken123": 42, "sk_globex": 43},
		inactive: map[int64]bool{},
	}
}

// echoStore writes the bound store id, or "none".
func echoStore(w http.ResponseWriter, r *http.Request) {
	if id, ok := tenant.StoreFromContext(r.Context()); ok {
		fmt.Fprintf(w, "%d", id)
		return
	}
	fmt.Fprint(w, "none")
}

func TestResolveStoreBindsKnownHost(t *testing.T) {
	r := chi.NewRouter()
	r.Use(ResolveStore(newFakeDirectory(), "www."))
	r.Get("/", echoStore)

	req := httptest.NewRequest(http.MethodGet, "http://www.acme.example.com:8080/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "42", rec.Body.String())
}

func TestResolveStorePassesThrough(t *testing.T) {
	dir := newFakeDirectory()
	cases := map[string]*fakeDirectory{
		"http://www.unknown.example.com/": dir,
		"http://shop.acme.example.com/":   dir,
		"http://www.acme.example.com/":    {err: errors.New("db down")},
	}
	for url, d := range cases {
		r := chi.NewRouter()
		r.Use(ResolveStore(d, "www."))
		r.Get("/", echoStore)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		require.Equal(t, http.StatusOK, rec.Code, url)
		require.Equal(t, "none", rec.Body.String(), url)
	}
}

func TestAPIKeyGuardAllowsValidKey(t *testing.T) {
	r := chi.NewRouter()
	r.Use(APIKeyGuard(newFakeDirectory(), "X-API-KEY"))
	r.Get("/v1/secure/test", func(w http.ResponseWriter, req *http.Request) {
		keyID, ok := tenant.APIKeyFromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, int64(142), keyID)
		echoStore(w, req)
	})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/v1/secure/test", nil)
	req.Header.Set("X-API-KEY", "sk_validtoken123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "42", rec.Body.String())
}

func TestAPIKeyGuardRejectionsAreIndistinguishable(t *testing.T) {
	called := false
	r := chi.NewRouter()
	r.Use(APIKeyGuard(newFakeDirectory(), "X-API-KEY"))
	r.Get("/v1/secure/test", func(w http.ResponseWriter, req *http.Request) { called = true })

	var bodies []string
	for _, key := range []string{"", "   ", "sk_archived", "sk_unknown", string(make([]byte, 200))} {
		req := httptest.NewRequest(http.MethodGet, "/v1/secure/test", nil)
		if key != "" {
			req.Header.Set("X-API-KEY", key)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		bodies = append(bodies, rec.Body.String())
	}

	require.False(t, called)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &body))
	require.Equal(t, map[string]string{"error": "Unauthorized"}, body)
	for _, b := range bodies[1:] {
		require.Equal(t, bodies[0], b)
	}
}

func TestAPIKeyGuardInfrastructureFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Use(APIKeyGuard(&fakeDirectory{err: errors.New("db down")}, "X-API-KEY"))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) { t.Fatal("handler must not run") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-KEY", "sk_validtoken123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "db down")
}

func TestConcurrentRequestsKeepTheirOwnStore(t *testing.T) {
	r := chi.NewRouter()
	r.Use(APIKeyGuard(newFakeDirectory(), "X-API-KEY"))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(time.Millisecond)
		echoStore(w, req)
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		key, want := "sk_validtoken123", "42"
		if i%2 == 1 {
			key, want = "sk_globex", "43"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-API-KEY", key)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, want, rec.Body.String())
		}()
	}
	wg.Wait()
}

func TestAdminSession(t *testing.T) {
	sessions, err := NewSessions("0123456789abcdef", time.Hour)
	require.NoError(t, err)

	dir := newFakeDirectory()
	r := chi.NewRouter()
	r.Use(AdminSession(sessions, dir))
	r.Get("/whoami", echoStore)
	r.With(EnsureStoreSelected).Get("/pages", echoStore)

	noStore, err := sessions.Issue(7, nil)
	require.NoError(t, err)
	storeID := int64(42)
	withStore, err := sessions.Issue(7, &storeID)
	require.NoError(t, err)

	do := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusUnauthorized, do("/whoami", "").Code)
	require.Equal(t, http.StatusUnauthorized, do("/whoami", "garbage").Code)
	require.Equal(t, "none", do("/whoami", noStore).Body.String())
	require.Equal(t, http.StatusConflict, do("/pages", noStore).Code)
	require.Equal(t, "42", do("/pages", withStore).Body.String())

	// The token still names 42, but the store was archived after selection.
	dir.inactive[42] = true
	require.Equal(t, http.StatusConflict, do("/pages", withStore).Code)
	require.Equal(t, "none", do("/whoami", withStore).Body.String())

	dir.inactive[42] = false
	dir.err = errors.New("connection refused")
	require.Equal(t, http.StatusInternalServerError, do("/pages", withStore).Code)
	require.Equal(t, "none", do("/whoami", noStore).Body.String())
}
