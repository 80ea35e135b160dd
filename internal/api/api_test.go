package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/rates"
	"storefront/internal/storage"
	"storefront/internal/tenant"
)

type fakeDirectory struct {
	hosts  map[string]int64
	keys   map[string]int64
	stores *fakeStores
	err    error
}

// StoreByID reads the same rows the admin store routes change.
func (f *fakeDirectory) StoreByID(ctx context.Context, id int64) (model.Store, error) {
	if f.err != nil {
		return model.Store{}, f.err
	}
	st, err := f.stores.GetStore(ctx, id)
	if err != nil || !st.Status.IsActive() || st.DeletedAt != nil {
		return model.Store{}, tenant.ErrTenantNotFound
	}
	return st, nil
}

func (f *fakeDirectory) StoreByHost(_ context.Context, host string) (model.Store, error) {
	if f.err != nil {
		return model.Store{}, f.err
	}
	id, ok := f.hosts[host]
	if !ok {
		return model.Store{}, tenant.ErrTenantNotFound
	}
	return model.Store{ID: id, Status: model.StatusActive}, nil
}

func (f *fakeDirectory) StoreByAPIKey(_ context.Context, key string) (model.Store, model.APIKey, error) {
	if f.err != nil {
		return model.Store{}, model.APIKey{}, f.err
	}
	id, ok := f.keys[key]
	if !ok {
		return model.Store{}, model.APIKey{}, tenant.ErrTenantNotFound
	}
	return model.Store{ID: id, Status: model.StatusActive}, model.APIKey{ID: 100 + id, StoreID: id}, nil
}

// memPages mirrors the storage scoping rules in memory.
type memPages struct {
	mu     sync.Mutex
	pages  map[int64]model.Page
	nextID int64
	trash  map[int64]bool
}

func newMemPages() *memPages {
	return &memPages{pages: map[int64]model.Page{}, trash: map[int64]bool{}}
}

func visible(scope tenant.Scope, p model.Page) bool {
	if id, ok := scope.StoreID(); ok {
		return p.StoreID != nil && *p.StoreID == id
	}
	return scope.IsUnscoped()
}

func (m *memPages) CreatePage(_ context.Context, scope tenant.Scope, p model.Page) (model.Page, error) {
	storeID, err := scope.Stamp(p.StoreID)
	if err != nil {
		return model.Page{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.pages {
		if existing.Slug == p.Slug && existing.StoreID != nil && storeID != nil && *existing.StoreID == *storeID {
			return model.Page{}, storage.ErrDuplicate
		}
	}
	m.nextID++
	p.ID = m.nextID
	p.StoreID = storeID
	m.pages[p.ID] = p
	return p, nil
}

func (m *memPages) get(scope tenant.Scope, id int64, trashed bool) (model.Page, error) {
	if err := scope.Validate(); err != nil {
		return model.Page{}, err
	}
	p, ok := m.pages[id]
	if !ok || !visible(scope, p) || m.trash[id] != trashed {
		return model.Page{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *memPages) GetPage(_ context.Context, scope tenant.Scope, id int64) (model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(scope, id, false)
}

func (m *memPages) ActivePageBySlug(_ context.Context, scope tenant.Scope, slug string) (model.Page, error) {
	if err := scope.Validate(); err != nil {
		return model.Page{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.pages {
		if p.Slug == slug && p.Status == model.StatusActive && !m.trash[id] && visible(scope, p) {
			return p, nil
		}
	}
	return model.Page{}, storage.ErrNotFound
}

func (m *memPages) ListPages(_ context.Context, scope tenant.Scope, f model.PageFilter) (model.PageList, error) {
	if err := scope.Validate(); err != nil {
		return model.PageList{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := model.PageList{Items: []model.Page{}, CurrentPage: f.Page, PerPage: f.PerPage, LastPage: 1}
	for id, p := range m.pages {
		if !visible(scope, p) || (!f.IncludeTrashed && m.trash[id] != f.OnlyTrashed) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Slug), strings.ToLower(f.Search)) {
			continue
		}
		list.Items = append(list.Items, p)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].ID < list.Items[j].ID })
	list.Total = len(list.Items)
	return list, nil
}

func (m *memPages) UpdatePage(_ context.Context, scope tenant.Scope, p model.Page) (model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, err := m.get(scope, p.ID, false)
	if err != nil {
		return model.Page{}, err
	}
	p.StoreID = existing.StoreID
	p.CreatedBy = existing.CreatedBy
	m.pages[p.ID] = p
	return p, nil
}

func (m *memPages) each(scope tenant.Scope, ids []int64, fn func(id int64, p model.Page) bool) (int64, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		p, ok := m.pages[id]
		if ok && visible(scope, p) && fn(id, p) {
			n++
		}
	}
	return n, nil
}

func (m *memPages) SetPagesStatus(_ context.Context, scope tenant.Scope, ids []int64, status model.Status, by *int64) (int64, error) {
	return m.each(scope, ids, func(id int64, p model.Page) bool {
		p.Status = status
		p.UpdatedBy = by
		m.pages[id] = p
		return true
	})
}

func (m *memPages) SoftDeletePages(_ context.Context, scope tenant.Scope, ids []int64) (int64, error) {
	return m.each(scope, ids, func(id int64, _ model.Page) bool {
		if m.trash[id] {
			return false
		}
		m.trash[id] = true
		return true
	})
}

func (m *memPages) RestorePages(_ context.Context, scope tenant.Scope, ids []int64) (int64, error) {
	return m.each(scope, ids, func(id int64, _ model.Page) bool {
		if !m.trash[id] {
			return false
		}
		delete(m.trash, id)
		return true
	})
}

func (m *memPages) PurgePages(_ context.Context, scope tenant.Scope, ids []int64) (int64, error) {
	return m.each(scope, ids, func(id int64, _ model.Page) bool {
		delete(m.pages, id)
		delete(m.trash, id)
		return true
	})
}

type fakeStores struct {
	stores map[int64]model.Store
}

func (f *fakeStores) CreateStore(_ context.Context, st model.Store) (model.Store, error) {
	st.ID = int64(len(f.stores) + 100)
	f.stores[st.ID] = st
	return st, nil
}

func (f *fakeStores) GetStore(_ context.Context, id int64) (model.Store, error) {
	st, ok := f.stores[id]
	if !ok {
		return model.Store{}, storage.ErrNotFound
	}
	return st, nil
}

func (f *fakeStores) ListStores(_ context.Context, status model.Status) ([]model.Store, error) {
	var out []model.Store
	for _, st := range f.stores {
		if status == "" || st.Status == status {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStores) SetStoreStatus(_ context.Context, id int64, status model.Status) error {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return err
	}
	st, ok := f.stores[id]
	if !ok {
		return storage.ErrNotFound
	}
	st.Status = status
	f.stores[id] = st
	return nil
}

func (f *fakeStores) DeleteStore(_ context.Context, id int64) error {
	delete(f.stores, id)
	return nil
}

func (f *fakeStores) IssueAPIKey(_ context.Context, storeID int64, status model.Status) (model.APIKey, error) {
	if status == "" {
		status = model.StatusActive
	}
	return model.APIKey{ID: 7, StoreID: storeID, Key: "sk_issued", Status: status}, nil
}

func (f *fakeStores) SetAPIKeyStatus(context.Context, int64, model.Status) error { return nil }

func (f *fakeStores) ListAPIKeys(_ context.Context, storeID int64) ([]model.APIKey, error) {
	return []model.APIKey{{ID: 7, StoreID: storeID, Key: "sk_issued", Status: model.StatusActive}}, nil
}

type rateTable map[string]float64

func (t rateTable) CurrencyRate(_ context.Context, base, code string) (float64, error) {
	v, ok := t[base+code]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return v, nil
}

type fakeJobs struct{ kinds []rates.Kind }

func (f *fakeJobs) Trigger(_ context.Context, kind rates.Kind) error {
	f.kinds = append(f.kinds, kind)
	return nil
}

type fakeWorkers struct{ n int }

func (f *fakeWorkers) Workers() int { return f.n }

func (f *fakeWorkers) SetWorkerCount(n int) error {
	f.n = n
	return nil
}

type testEnv struct {
	handler   http.Handler
	pages     *memPages
	stores    *fakeStores
	directory *fakeDirectory
	users     *memUsers
	outbox    *outbox
	api       *API
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret-0123456789"
	sessions, err := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	require.NoError(t, err)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)

	stores := &fakeStores{stores: map[int64]model.Store{
		42: {ID: 42, Name: "Acme", ShopName: "Acme Shop", ShopDomain: "www.acme.example.com", Status: model.StatusActive},
		43: {ID: 43, Name: "Globex", ShopDomain: "www.globex.example.com", Status: model.StatusActive},
		44: {ID: 44, Name: "Initech", ShopDomain: "www.initech.example.com", Status: model.StatusDraft},
	}}
	env := &testEnv{
		pages:  newMemPages(),
		stores: stores,
		users:  &memUsers{users: map[string]model.User{"admin@example.com": {ID: 1, Email: "admin@example.com", PasswordHash: hash}}},
		outbox: &outbox{},
		directory: &fakeDirectory{
			hosts:  map[string]int64{"www.acme.example.com": 42, "www.globex.example.com": 43},
			keys:   map[string]int64{"sk_validtoken123": 42, "sk_globex": 43},
			stores: stores,
		},
	}
	env.api = NewAPI(cfg, Deps{
		Pages:     env.pages,
		Stores:    stores,
		Users:     env.users,
		Directory: env.directory,
		Sessions:  sessions,
		Rates:     rateTable{"USDEUR": 0.5, "USDINR": 80},
		Accounts:  auth.NewAccounts(env.users, newMemCodes(), env.outbox, auth.AccountOptions{ResetURL: "https://admin.example.com/reset"}, nil),
		Tokens:    auth.NewTokens(newMemTokens(), nil),
	}, nil)
	env.handler = env.api.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, host, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Host = host
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *testEnv) seed(t *testing.T, storeID int64, title string, status model.Status) model.Page {
	t.Helper()
	p, err := e.pages.CreatePage(context.Background(), tenant.ForStore(storeID), model.Page{Title: title, Slug: slugify(title), Status: status})
	require.NoError(t, err)
	return p
}

func TestPublicSiteServesResolvedStore(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 42, "About Us", model.StatusActive)
	env.seed(t, 42, "Draft Notes", model.StatusDraft)
	env.seed(t, 43, "Globex About", model.StatusActive)

	rr := env.do(t, http.MethodGet, "www.acme.example.com:8080", "/", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Acme Shop", decode[StoreSummary](t, rr).ShopName)

	rr = env.do(t, http.MethodGet, "www.acme.example.com", "/pages", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[model.PageList](t, rr)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "about-us", list.Items[0].Slug)

	rr = env.do(t, http.MethodGet, "www.acme.example.com", "/pages/about-us", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "www.acme.example.com", "/pages/globex-about", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownPublicHostFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 42, "About Us", model.StatusActive)

	for _, path := range []string{"/", "/pages", "/pages/about-us"} {
		rr := env.do(t, http.MethodGet, "www.unknown.example.com", path, nil, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.JSONEq(t, `{"error":"store not found"}`, rr.Body.String())
	}

	// only an explicit opt-in reads across stores
	all, err := env.pages.ListPages(context.Background(), tenant.Unscoped(), model.PageFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
}

func TestPublicHostInfrastructureFailureDoesNotLeak(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 42, "About Us", model.StatusActive)
	env.directory.err = errors.New("connection refused")

	rr := env.do(t, http.MethodGet, "www.acme.example.com", "/pages", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotContains(t, rr.Body.String(), "about-us")
}

func TestAPIKeyGuardedRoutes(t *testing.T) {
	env := newTestEnv(t)
	const host = "api.example.com"

	rr := env.do(t, http.MethodGet, host, "/v1/secure/test", nil, map[string]string{"X-API-KEY": "sk_validtoken123"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(42), decode[SecureTestResponse](t, rr).StoreID)

	for name, headers := range map[string]map[string]string{
		"missing":  nil,
		"unknown":  {"X-API-KEY": "sk_nope"},
		"blank":    {"X-API-KEY": "  "},
		"too long": {"X-API-KEY": "sk_" + strings.Repeat("a", 200)},
	} {
		rr := env.do(t, http.MethodGet, host, "/v1/secure/test", nil, headers)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, name)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String(), name)
	}

	rr = env.do(t, http.MethodGet, host, "/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	env.directory.err = errors.New("db timeout")
	rr = env.do(t, http.MethodGet, host, "/v1/secure/test", nil, map[string]string{"X-API-KEY": "sk_validtoken123"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db timeout")
}

func TestAPICreatePageIsStampedWithKeyOwner(t *testing.T) {
	env := newTestEnv(t)
	forged := int64(43)

	rr := env.do(t, http.MethodPost, "api.example.com", "/v1/pages",
		PageRequest{Title: "Hello World", Status: model.StatusActive, StoreID: &forged},
		map[string]string{"X-API-KEY": "sk_validtoken123"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	p := decode[model.Page](t, rr)
	require.NotNil(t, p.StoreID)
	assert.Equal(t, int64(42), *p.StoreID)
	assert.Equal(t, "hello-world", p.Slug)

	rr = env.do(t, http.MethodGet, "api.example.com", "/v1/pages", nil, map[string]string{"X-API-KEY": "sk_globex"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[model.PageList](t, rr).Items)
}

func TestConcurrentAPIRequestsStayInTheirStore(t *testing.T) {
	env := newTestEnv(t)
	keys := map[string]int64{"sk_validtoken123": 42, "sk_globex": 43}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for key, want := range keys {
			wg.Add(1)
			go func(i int, key string, want int64) {
				defer wg.Done()
				var buf bytes.Buffer
				_ = json.NewEncoder(&buf).Encode(PageRequest{Title: fmt.Sprintf("page %d", i), Status: model.StatusDraft})
				req := httptest.NewRequest(http.MethodPost, "/v1/pages", &buf)
				req.Host = "api.example.com"
				req.Header.Set("X-API-KEY", key)
				rr := httptest.NewRecorder()
				env.handler.ServeHTTP(rr, req)

				var p model.Page
				if assert.Equal(t, http.StatusCreated, rr.Code) && assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p)) {
					assert.Equal(t, want, *p.StoreID)
				}
			}(i, key, want)
		}
	}
	wg.Wait()

	all, err := env.pages.ListPages(context.Background(), tenant.Unscoped(), model.PageFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 40)
}

func login(t *testing.T, env *testEnv) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "admin.example.com", "/login",
		LoginRequest{Email: "Admin@Example.com", Password: "correct horse"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[TokenResponse](t, rr).Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAdminPageWorkflow(t *testing.T) {
	env := newTestEnv(t)
	const host = "admin.example.com"
	token := login(t, env)

	rr := env.do(t, http.MethodGet, host, "/pages", nil, bearer(token))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"store not selected"}`, rr.Body.String())

	rr = env.do(t, http.MethodPost, host, "/stores/select", SelectStoreRequest{StoreID: 44}, bearer(token))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPost, host, "/stores/select", SelectStoreRequest{StoreID: 42}, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	token = decode[TokenResponse](t, rr).Token

	rr = env.do(t, http.MethodPost, host, "/pages", PageRequest{Title: "Terms", Status: model.StatusDraft}, bearer(token))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Page](t, rr)
	assert.Equal(t, int64(42), *created.StoreID)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, int64(1), *created.CreatedBy)

	rr = env.do(t, http.MethodPost, host, "/pages", PageRequest{Title: "Terms", Status: model.StatusDraft}, bearer(token))
	assert.Equal(t, http.StatusConflict, rr.Code)

	other := env.seed(t, 43, "Globex Terms", model.StatusActive)
	rr = env.do(t, http.MethodGet, host, fmt.Sprintf("/pages/%d", other.ID), nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, host, "/pages/bulk",
		BulkRequest{IDs: []int64{created.ID, other.ID}, Action: "archived"}, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[MessageResponse](t, rr).Affected)

	rr = env.do(t, http.MethodPut, host, fmt.Sprintf("/pages/%d", created.ID),
		PageRequest{Title: "Terms of Service", Slug: "terms", Status: model.StatusActive}, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Terms of Service", decode[model.Page](t, rr).Title)

	rr = env.do(t, http.MethodDelete, host, fmt.Sprintf("/pages/%d", created.ID), nil, bearer(token))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, host, "/pages?trashed=only", nil, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[model.PageList](t, rr).Items, 1)

	env.seed(t, 42, "Contact", model.StatusActive)
	rr = env.do(t, http.MethodGet, host, "/pages", nil, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[model.PageList](t, rr).Items, 1)
	rr = env.do(t, http.MethodGet, host, "/pages?trashed=with", nil, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[model.PageList](t, rr).Items, 2)
	rr = env.do(t, http.MethodGet, host, "/pages?trashed=yes", nil, bearer(token))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPost, host, fmt.Sprintf("/pages/%d/restore", created.ID), nil, bearer(token))
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodPost, host, fmt.Sprintf("/pages/%d/restore", created.ID), nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, host, "/pages/bulk",
		BulkRequest{IDs: []int64{created.ID}, Action: "delete_permanently"}, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	_, err := env.pages.GetPage(context.Background(), tenant.Unscoped(), created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.pages.GetPage(context.Background(), tenant.Unscoped(), other.ID)
	assert.NoError(t, err)
}

func TestAdminLosesArchivedStore(t *testing.T) {
	env := newTestEnv(t)
	const host = "admin.example.com"
	token := login(t, env)

	rr := env.do(t, http.MethodPost, host, "/stores/select", SelectStoreRequest{StoreID: 42}, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	selected := decode[TokenResponse](t, rr).Token

	rr = env.do(t, http.MethodPost, host, "/pages", PageRequest{Title: "Before", Status: model.StatusDraft}, bearer(selected))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPatch, host, "/stores/42/status", StatusRequest{Status: model.StatusArchived}, bearer(selected))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodPost, host, "/pages", PageRequest{Title: "After", Status: model.StatusDraft}, bearer(selected))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"store not selected"}`, rr.Body.String())

	rr = env.do(t, http.MethodGet, host, "/pages", nil, bearer(selected))
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Deleted stores are refused the same way once reactivated and removed.
	rr = env.do(t, http.MethodPatch, host, "/stores/42/status", StatusRequest{Status: model.StatusActive}, bearer(selected))
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodGet, host, "/pages", nil, bearer(selected))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodDelete, host, "/stores/42", nil, bearer(selected))
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodGet, host, "/pages", nil, bearer(selected))
	assert.Equal(t, http.StatusConflict, rr.Code)

	all, err := env.pages.ListPages(context.Background(), tenant.Unscoped(), model.PageFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
}

func TestAdminRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	for _, req := range []LoginRequest{
		{Email: "admin@example.com", Password: "wrong password"},
		{Email: "nobody@example.com", Password: "correct horse"},
	} {
		rr := env.do(t, http.MethodPost, "admin.example.com", "/login", req, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr := env.do(t, http.MethodGet, "admin.example.com", "/stores", nil, bearer("not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminStoreAndKeyManagement(t *testing.T) {
	env := newTestEnv(t)
	const host = "admin.example.com"
	token := login(t, env)

	rr := env.do(t, http.MethodGet, host, "/stores?status=active", nil, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Store](t, rr), 2)

	rr = env.do(t, http.MethodGet, host, "/stores?status=paused", nil, bearer(token))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPost, host, "/stores/42/api-keys", nil, bearer(token))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "sk_issued", decode[IssuedKeyResponse](t, rr).Key)

	rr = env.do(t, http.MethodGet, host, "/stores/42/api-keys", nil, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "sk_issued")

	rr = env.do(t, http.MethodPatch, host, "/stores/42/status", map[string]string{"status": "bogus"}, bearer(token))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPatch, host, "/stores/42/status", StatusRequest{Status: model.StatusArchived}, bearer(token))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodPost, host, "/rates/refresh", RefreshRequest{Kind: rates.KindCurrency}, bearer(token))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	jobs := &fakeJobs{}
	env.api.Jobs = jobs
	rr = env.do(t, http.MethodPost, host, "/rates/refresh", RefreshRequest{Kind: rates.KindMetal}, bearer(token))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []rates.Kind{rates.KindMetal}, jobs.kinds)
}

func TestAdminScalesWorkers(t *testing.T) {
	env := newTestEnv(t)
	const host = "admin.example.com"
	token := login(t, env)

	rr := env.do(t, http.MethodGet, host, "/workers", nil, bearer(token))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	pool := &fakeWorkers{n: 2}
	env.api.Workers = pool

	rr = env.do(t, http.MethodGet, host, "/workers", nil, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decode[WorkersResponse](t, rr).Workers)

	rr = env.do(t, http.MethodPatch, host, "/workers", WorkersRequest{Workers: 5}, bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, decode[WorkersResponse](t, rr).Workers)
	assert.Equal(t, 5, pool.n)

	for _, n := range []int{0, -1, maxWorkers + 1} {
		rr = env.do(t, http.MethodPatch, host, "/workers", WorkersRequest{Workers: n}, bearer(token))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, n)
	}
	assert.Equal(t, 5, pool.n)

	rr = env.do(t, http.MethodPatch, host, "/workers", WorkersRequest{Workers: 3}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPageValidation(t *testing.T) {
	env := newTestEnv(t)
	key := map[string]string{"X-API-KEY": "sk_validtoken123"}

	cases := map[string]any{
		"missing title":  PageRequest{Status: model.StatusActive},
		"missing status": map[string]string{"title": "Hello"},
		"bad slug":       PageRequest{Title: "Hello", Slug: "Hello World", Status: model.StatusActive},
		"long title":     PageRequest{Title: strings.Repeat("x", 256), Status: model.StatusActive},
		"bad status":     map[string]string{"title": "Hello", "status": "published"},
	}
	for name, body := range cases {
		rr := env.do(t, http.MethodPost, "api.example.com", "/v1/pages", body, key)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, name)
	}

	rr := env.do(t, http.MethodGet, "api.example.com", "/v1/pages?per_page=500", nil, key)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = env.do(t, http.MethodGet, "api.example.com", "/v1/pages?page=0", nil, key)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestConvertRate(t *testing.T) {
	env := newTestEnv(t)
	key := map[string]string{"X-API-KEY": "sk_validtoken123"}

	rr := env.do(t, http.MethodGet, "api.example.com", "/v1/rates/convert?from=EUR&to=INR", nil, key)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 160, decode[ConvertResponse](t, rr).Rate, 1e-9)

	rr = env.do(t, http.MethodGet, "api.example.com", "/v1/rates/convert?from=EUR&to=GBP", nil, key)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestConvertRateEchoesNormalizedCodes(t *testing.T) {
	env := newTestEnv(t)
	key := map[string]string{"X-API-KEY": "sk_validtoken123"}

	rr := env.do(t, http.MethodGet, "api.example.com", "/v1/rates/convert?from=eur&to=inr", nil, key)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[ConvertResponse](t, rr)
	assert.Equal(t, "EUR", got.From)
	assert.Equal(t, "INR", got.To)
	assert.InDelta(t, 160, got.Rate, 1e-9)
}

func TestUnknownSiteHost(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "shop.example.com", "/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "about-us", slugify("  About Us! "))
	assert.Equal(t, "q3-2024-report", slugify("Q3 -- 2024 Report"))
	assert.Equal(t, "", slugify("!!!"))
}
