// Package api serves the public, admin and API sites from one listener,
// choosing the site by host prefix.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "storefront/docs"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/rates"
	"storefront/internal/tenant"
)

// PageStore is the tenant-scoped page repository.
type PageStore interface {
	CreatePage(ctx context.Context, scope tenant.Scope, p model.Page) (model.Page, error)
	GetPage(ctx context.Context, scope tenant.Scope, id int64) (model.Page, error)
	ActivePageBySlug(ctx context.Context, scope tenant.Scope, slug string) (model.Page, error)
	ListPages(ctx context.Context, scope tenant.Scope, f model.PageFilter) (model.PageList, error)
	UpdatePage(ctx context.Context, scope tenant.Scope, p model.Page) (model.Page, error)
	SetPagesStatus(ctx context.Context, scope tenant.Scope, ids []int64, status model.Status, by *int64) (int64, error)
	SoftDeletePages(ctx context.Context, scope tenant.Scope, ids []int64) (int64, error)
	RestorePages(ctx context.Context, scope tenant.Scope, ids []int64) (int64, error)
	PurgePages(ctx context.Context, scope tenant.Scope, ids []int64) (int64, error)
}

// StoreAdmin provisions stores and keys.
type StoreAdmin interface {
	CreateStore(ctx context.Context, st model.Store) (model.Store, error)
	GetStore(ctx context.Context, id int64) (model.Store, error)
	ListStores(ctx context.Context, status model.Status) ([]model.Store, error)
	SetStoreStatus(ctx context.Context, id int64, status model.Status) error
	DeleteStore(ctx context.Context, id int64) error
	IssueAPIKey(ctx context.Context, storeID int64, status model.Status) (model.APIKey, error)
	SetAPIKeyStatus(ctx context.Context, keyID int64, status model.Status) error
	ListAPIKeys(ctx context.Context, storeID int64) ([]model.APIKey, error)
}

type UserStore interface {
	UserByEmail(ctx context.Context, email string) (model.User, error)
}

// JobTrigger enqueues a rate refresh outside its schedule.
type JobTrigger interface {
	Trigger(ctx context.Context, kind rates.Kind) error
}

// WorkerScaler resizes the rate job worker pool at runtime.
type WorkerScaler interface {
	Workers() int
	SetWorkerCount(n int) error
}

// AccountService runs registration, password reset and OTP login.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (model.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, password string) error
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (model.User, error)
}

// TokenService manages api host bearer tokens.
type TokenService interface {
	auth.TokenResolver
	Issue(ctx context.Context, userID, storeID int64, name string, expiresAt *time.Time) (model.APIToken, string, error)
	List(ctx context.Context, userID int64) ([]model.APIToken, error)
	Revoke(ctx context.Context, userID, id int64) error
}

type Deps struct {
	Pages     PageStore
	Stores    StoreAdmin
	Users     UserStore
	Directory auth.Directory
	Sessions  *auth.Sessions
	Rates     rates.RateLookup
	Jobs      JobTrigger
	Workers   WorkerScaler
	Accounts  AccountService
	Tokens    TokenService
}

type API struct {
	Deps
	Cfg    *config.Config
	Logger *zap.Logger
}

func NewAPI(cfg *config.Config, deps Deps, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{Deps: deps, Cfg: cfg, Logger: logger}
}

// tokenResolver keeps a missing TokenService a nil interface so APIGuard
// falls back to API keys only.
func (a *API) tokenResolver() auth.TokenResolver {
	if a.Tokens == nil {
		return nil
	}
	return a.Tokens
}

// Router returns the root handler: shared middleware, then dispatch on host.
func (a *API) Router() http.Handler {
	sites := &hostRouter{
		routes: []hostRoute{
			{prefix: a.Cfg.Hosts.APIPrefix, handler: a.apiRouter()},
			{prefix: a.Cfg.Hosts.AdminPrefix, handler: a.adminRouter()},
			{prefix: a.Cfg.Hosts.PublicPrefix, handler: a.publicRouter()},
		},
	}
	return chi.Chain(
		middleware.RequestID,
		logging.RequestLogger(a.Logger),
		middleware.Recoverer,
	).Handler(sites)
}

type hostRoute struct {
	prefix  string
	handler http.Handler
}

// hostRouter matches r.Host, which net/http removes from r.Header.
type hostRouter struct {
	routes []hostRoute
}

func (h *hostRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := strings.ToLower(logging.HostOnly(r.Host))
	for _, route := range h.routes {
		if route.prefix != "" && strings.HasPrefix(host, route.prefix) {
			route.handler.ServeHTTP(w, r)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, ErrorResponse{"Not Found"})
}

func (a *API) publicRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(BlockScrapers(a.Cfg.Hosts.BlockedAgents))
	r.Use(auth.ResolveStore(a.Directory, a.Cfg.Hosts.PublicPrefix))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", a.StoreHome)
	r.Get("/pages", a.PublicPages)
	r.Get("/pages/{slug}", a.PublicPage)
	return r
}

func (a *API) adminRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Post("/login", a.Login)
	r.Post("/register", a.Register)
	r.Post("/password/forgot", a.ForgotPassword)
	r.Post("/password/reset", a.ResetPassword)
	r.Post("/otp/send", a.SendOTP)
	r.Post("/otp/verify", a.VerifyOTP)

	r.Group(func(r chi.Router) {
		r.Use(auth.AdminSession(a.Sessions, a.Directory))

		r.Get("/stores", a.ListStores)
		r.Post("/stores", a.CreateStore)
		r.Post("/stores/select", a.SelectStore)
		r.Patch("/stores/{id}/status", a.UpdateStoreStatus)
		r.Delete("/stores/{id}", a.DeleteStore)
		r.Get("/stores/{id}/api-keys", a.ListAPIKeys)
		r.Post("/stores/{id}/api-keys", a.IssueAPIKey)
		r.Patch("/api-keys/{id}/status", a.UpdateAPIKeyStatus)
		r.Post("/rates/refresh", a.RefreshRates)
		r.Get("/workers", a.ShowWorkers)
		r.Patch("/workers", a.ScaleWorkers)

		r.Group(func(r chi.Router) {
			r.Use(auth.EnsureStoreSelected)

			r.Get("/pages", a.ListPages)
			r.Post("/pages", a.CreatePage)
			r.Post("/pages/bulk", a.BulkPages)
			r.Get("/pages/{id}", a.ShowPage)
			r.Put("/pages/{id}", a.UpdatePage)
			r.Delete("/pages/{id}", a.DeletePage)
			r.Post("/pages/{id}/restore", a.RestorePage)
		})
	})
	return r
}

func (a *API) apiRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/v1/health", a.Health)
	r.With(a.tokensEnabled).Post("/v1/auth/login", a.TokenLogin)

	r.Group(func(r chi.Router) {
		r.Use(a.tokensEnabled)
		r.Use(auth.TokenGuard(a.tokenResolver(), a.Directory))

		r.Get("/v1/auth/tokens", a.ListTokens)
		r.Post("/v1/auth/tokens", a.CreateToken)
		r.Delete("/v1/auth/tokens/{id}", a.RevokeToken)
		r.Post("/v1/auth/logout", a.TokenLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.APIGuard(a.Directory, a.tokenResolver(), a.Cfg.Auth.APIKeyHeader))

		r.Get("/v1/secure/test", a.SecureTest)
		r.Get("/v1/pages", a.APIListPages)
		r.Post("/v1/pages", a.APICreatePage)
		r.Get("/v1/rates/convert", a.ConvertRate)
	})
	return r
}
