package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
	"storefront/internal/storage"
)

type memTokens struct {
	mu      sync.Mutex
	tokens  map[int64]model.APIToken
	nextID  int64
	touched int
}

func newMemTokens() *memTokens { return &memTokens{tokens: map[int64]model.APIToken{}} }

func (m *memTokens) CreateAPIToken(_ context.Context, t model.APIToken) (model.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now()
	m.tokens[t.ID] = t
	return t, nil
}

func (m *memTokens) APITokenByID(_ context.Context, id int64) (model.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return model.APIToken{}, storage.ErrNotFound
	}
	return t, nil
}

func (m *memTokens) ListAPITokens(_ context.Context, userID int64) ([]model.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.APIToken
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTokens) DeleteAPIToken(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(m.tokens, id)
	return nil
}

func (m *memTokens) TouchAPIToken(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched++
	return nil
}

func TestTokensIssueAndResolve(t *testing.T) {
	store := newMemTokens()
	tokens := NewTokens(store, nil)
	ctx := context.Background()

	tok, plain, err := tokens.Issue(ctx, 7, 42, "ci", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plain, fmt.Sprintf("%d|", tok.ID)))
	assert.NotContains(t, tok.SecretHash, strings.SplitN(plain, "|", 2)[1])

	got, err := tokens.Resolve(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, int64(42), got.StoreID)
	assert.NotNil(t, got.LastUsedAt)
	assert.Equal(t, 1, store.touched)

	for _, bad := range []string{"", "nobar", "x|secret", "0|secret", fmt.Sprintf("%d|wrong", tok.ID), "999|" + strings.SplitN(plain, "|", 2)[1]} {
		_, err := tokens.Resolve(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidCredentials, bad)
	}

	require.NoError(t, tokens.Revoke(ctx, 7, tok.ID))
	_, err = tokens.Resolve(ctx, plain)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens(newMemTokens(), nil)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour)
	_, plain, err := tokens.Issue(ctx, 7, 42, "short lived", &expires)
	require.NoError(t, err)
	_, err = tokens.Resolve(ctx, plain)
	require.NoError(t, err)

	tokens.now = func() time.Time { return expires }
	_, err = tokens.Resolve(ctx, plain)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokensRevokeIsOwnerOnly(t *testing.T) {
	tokens := NewTokens(newMemTokens(), nil)
	ctx := context.Background()

	tok, _, err := tokens.Issue(ctx, 7, 42, "mine", nil)
	require.NoError(t, err)
	require.ErrorIs(t, tokens.Revoke(ctx, 8, tok.ID), storage.ErrNotFound)

	list, err := tokens.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAPIGuardAcceptsKeyOrToken(t *testing.T) {
	dir := newFakeDirectory()
	tokens := NewTokens(newMemTokens(), nil)
	ctx := context.Background()

	_, acme, err := tokens.Issue(ctx, 7, 42, "acme", nil)
	require.NoError(t, err)
	_, globex, err := tokens.Issue(ctx, 7, 43, "globex", nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(APIGuard(dir, tokens, "X-API-KEY"))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		tok, _ := TokenFromContext(r.Context())
		echoStore(w, r)
		fmt.Fprintf(w, ":%d", tok.ID)
	})

	do := func(headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, "42:0", do(map[string]string{"X-API-KEY": "sk_validtoken123"}).Body.String())
	assert.Equal(t, "42:1", do(map[string]string{"Authorization": "Bearer " + acme}).Body.String())
	assert.Equal(t, "43:2", do(map[string]string{"Authorization": "Bearer " + globex}).Body.String())

	// the key header wins; a bad key is not rescued by a good token
	rec := do(map[string]string{"X-API-KEY": "sk_nope", "Authorization": "Bearer " + acme})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, do(map[string]string{"Authorization": "Bearer 1|forged"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(nil).Code)

	// a token stops working once its store is no longer active
	dir.inactive[43] = true
	assert.Equal(t, http.StatusUnauthorized, do(map[string]string{"Authorization": "Bearer " + globex}).Code)
}

func TestAPIGuardWithoutTokensIsKeyOnly(t *testing.T) {
	r := chi.NewRouter()
	r.Use(APIGuard(newFakeDirectory(), nil, "X-API-KEY"))
	r.Get("/", echoStore)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer 1|secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
