package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/logging"
	"storefront/internal/model"
	"storefront/internal/rates"
	"storefront/internal/storage"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token   string `json:"token"`
	StoreID *int64 `json:"store_id,omitempty"`
}

type SelectStoreRequest struct {
	StoreID int64 `json:"store_id"`
}

type StatusRequest struct {
	Status model.Status `json:"status"`
}

type CreateStoreRequest struct {
	Name       string       `json:"name"`
	ShopName   string       `json:"shop_name"`
	ShopDomain string       `json:"shop_domain"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Country    string       `json:"country"`
	Status     model.Status `json:"status"`
}

// IssuedKeyResponse is the only response that ever carries a key in clear.
type IssuedKeyResponse struct {
	ID      int64        `json:"id"`
	StoreID int64        `json:"store_id"`
	Key     string       `json:"key"`
	Status  model.Status `json:"status"`
}

type RefreshRequest struct {
	Kind rates.Kind `json:"kind"`
}

// maxWorkers caps runtime rescaling; each worker holds its own AMQP channel.
const maxWorkers = 64

type WorkersRequest struct {
	Workers int `json:"workers"`
}

type WorkersResponse struct {
	Workers int `json:"workers"`
}

// @Summary Admin login
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := a.authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := a.Sessions.Issue(user.ID, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("admin logged in", zap.Int64("user_id", user.ID))
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// authenticate checks an email and password pair. Unknown emails and wrong
// passwords are the same ErrInvalidCredentials.
func (a *API) authenticate(ctx context.Context, email, password string) (model.User, error) {
	user, err := a.Users.UserByEmail(ctx, auth.NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return model.User{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// @Summary List stores
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "active, draft or archived"
// @Success 200 {array} model.Store
// @Router /stores [get]
func (a *API) ListStores(w http.ResponseWriter, r *http.Request) {
	var status model.Status
	if s := r.URL.Query().Get("status"); s != "" {
		var err error
		if status, err = model.ParseStatus(s); err != nil {
			writeError(w, r, err)
			return
		}
	}
	stores, err := a.Stores.ListStores(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stores == nil {
		stores = []model.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

// @Summary Create a store
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CreateStoreRequest true "Store"
// @Success 201 {object} model.Store
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /stores [post]
func (a *API) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := a.Stores.CreateStore(r.Context(), model.Store{
		Name:       req.Name,
		ShopName:   req.ShopName,
		ShopDomain: req.ShopDomain,
		Email:      req.Email,
		Phone:      req.Phone,
		Country:    req.Country,
		Status:     req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// @Summary Select the store to manage
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body SelectStoreRequest true "Store"
// @Success 200 {object} TokenResponse
// @Failure 422 {object} ErrorResponse
// @Router /stores/select [post]
func (a *API) SelectStore(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{"Unauthorized"})
		return
	}

	var req SelectStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.StoreID <= 0 {
		writeError(w, r, invalid("store_id is required"))
		return
	}

	st, err := a.Stores.GetStore(r.Context(), req.StoreID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !st.Status.IsActive() || st.DeletedAt != nil {
		writeError(w, r, invalid("store is not active"))
		return
	}

	token, err := a.Sessions.Issue(claims.UserID, &st.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, StoreID: &st.ID})
}

// @Summary Change store status
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Param id path int true "Store ID"
// @Param body body StatusRequest true "Status"
// @Success 204
// @Router /stores/{id}/status [patch]
func (a *API) UpdateStoreStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Stores.SetStoreStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Delete a store
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "Store ID"
// @Success 204
// @Router /stores/{id} [delete]
func (a *API) DeleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Stores.DeleteStore(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List a store's API keys
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Store ID"
// @Success 200 {array} model.APIKey
// @Router /stores/{id}/api-keys [get]
func (a *API) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	keys, err := a.Stores.ListAPIKeys(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// @Summary Issue an API key
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Store ID"
// @Param body body StatusRequest false "Initial status, default active"
// @Success 201 {object} IssuedKeyResponse
// @Router /stores/{id}/api-keys [post]
func (a *API) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req StatusRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	key, err := a.Stores.IssueAPIKey(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IssuedKeyResponse{ID: key.ID, StoreID: key.StoreID, Key: key.Key, Status: key.Status})
}

// @Summary Change API key status
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Param id path int true "API key ID"
// @Param body body StatusRequest true "Status"
// @Success 204
// @Router /api-keys/{id}/status [patch]
func (a *API) UpdateAPIKeyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Stores.SetAPIKeyStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Enqueue a rate refresh
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Param body body RefreshRequest true "currency or metal"
// @Success 202 {object} MessageResponse
// @Failure 503 {object} ErrorResponse
// @Router /rates/refresh [post]
func (a *API) RefreshRates(w http.ResponseWriter, r *http.Request) {
	if a.Jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{"rate jobs are disabled"})
		return
	}
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Kind != rates.KindCurrency && req.Kind != rates.KindMetal {
		writeError(w, r, invalid("kind must be currency or metal"))
		return
	}
	if err := a.Jobs.Trigger(r.Context(), req.Kind); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "rate job queued"})
}

// @Summary Show the rate worker pool size
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} WorkersResponse
// @Failure 503 {object} ErrorResponse
// @Router /workers [get]
func (a *API) ShowWorkers(w http.ResponseWriter, r *http.Request) {
	if a.Workers == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{"rate jobs are disabled"})
		return
	}
	writeJSON(w, http.StatusOK, WorkersResponse{Workers: a.Workers.Workers()})
}

// @Summary Resize the rate worker pool
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body WorkersRequest true "Worker count"
// @Success 200 {object} WorkersResponse
// @Failure 422 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /workers [patch]
func (a *API) ScaleWorkers(w http.ResponseWriter, r *http.Request) {
	if a.Workers == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{"rate jobs are disabled"})
		return
	}
	var req WorkersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Workers < 1 || req.Workers > maxWorkers {
		writeError(w, r, invalid("workers must be between 1 and %d", maxWorkers))
		return
	}
	if err := a.Workers.SetWorkerCount(req.Workers); err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("worker pool rescaled", zap.Int("workers", req.Workers))
	writeJSON(w, http.StatusOK, WorkersResponse{Workers: a.Workers.Workers()})
}
