package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/logging"
	"storefront/internal/model"
)

type TokenLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	StoreID   int64  `json:"store_id"`
	TokenName string `json:"token_name"`
}

type CreateTokenRequest struct {
	Name      string     `json:"name"`
	StoreID   int64      `json:"store_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// APITokenResponse is the only response that carries a bearer token in clear.
type APITokenResponse struct {
	ID        int64      `json:"id"`
	StoreID   int64      `json:"store_id"`
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (a *API) tokensEnabled(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Tokens == nil {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{"api tokens are disabled"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// activeStore rejects token targets that could not authorize a request.
func (a *API) activeStore(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("store_id is required")
	}
	if _, err := a.Directory.StoreByID(ctx, id); err != nil {
		if isNotFound(err) {
			return invalid("store is not active")
		}
		return err
	}
	return nil
}

func (a *API) issueToken(w http.ResponseWriter, r *http.Request, userID, storeID int64, name string, expiresAt *time.Time) {
	name = strings.TrimSpace(name)
	switch {
	case name == "" || len(name) > 255:
		writeError(w, r, invalid("name is required and must be at most 255 characters"))
		return
	case expiresAt != nil && !expiresAt.After(time.Now()):
		writeError(w, r, invalid("expires_at must be in the future"))
		return
	}
	if err := a.activeStore(r.Context(), storeID); err != nil {
		writeError(w, r, err)
		return
	}

	tok, plain, err := a.Tokens.Issue(r.Context(), userID, storeID, name, expiresAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("api token issued",
		zap.Int64("user_id", userID), zap.Int64("store_id", storeID), zap.Int64("api_token_id", tok.ID))
	writeJSON(w, http.StatusCreated, APITokenResponse{
		ID:        tok.ID,
		StoreID:   tok.StoreID,
		Token:     plain,
		TokenType: "Bearer",
		ExpiresAt: tok.ExpiresAt,
	})
}

// @Summary Exchange credentials for an API token
// @Tags API Tokens
// @Accept json
// @Produce json
// @Param body body TokenLoginRequest true "Credentials and target store"
// @Success 201 {object} APITokenResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/auth/login [post]
func (a *API) TokenLogin(w http.ResponseWriter, r *http.Request) {
	var req TokenLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := req.TokenName
	if strings.TrimSpace(name) == "" {
		name = "api-token"
	}
	a.issueToken(w, r, user.ID, req.StoreID, name, nil)
}

// @Summary List the caller's API tokens
// @Tags API Tokens
// @Security BearerAuth
// @Produce json
// @Success 200 {array} model.APIToken
// @Failure 401 {object} ErrorResponse
// @Router /v1/auth/tokens [get]
func (a *API) ListTokens(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.TokenFromContext(r.Context())
	tokens, err := a.Tokens.List(r.Context(), current.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tokens == nil {
		tokens = []model.APIToken{}
	}
	writeJSON(w, http.StatusOK, tokens)
}

// @Summary Create another API token
// @Tags API Tokens
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CreateTokenRequest true "Token; store_id defaults to the caller's store"
// @Success 201 {object} APITokenResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/auth/tokens [post]
func (a *API) CreateToken(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.TokenFromContext(r.Context())
	var req CreateTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	storeID := req.StoreID
	if storeID == 0 {
		storeID = current.StoreID
	}
	a.issueToken(w, r, current.UserID, storeID, req.Name, req.ExpiresAt)
}

// @Summary Revoke one of the caller's API tokens
// @Tags API Tokens
// @Security BearerAuth
// @Param id path int true "Token ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /v1/auth/tokens/{id} [delete]
func (a *API) RevokeToken(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.TokenFromContext(r.Context())
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Tokens.Revoke(r.Context(), current.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Revoke the token used for this request
// @Tags API Tokens
// @Security BearerAuth
// @Success 204
// @Router /v1/auth/logout [post]
func (a *API) TokenLogout(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.TokenFromContext(r.Context())
	if err := a.Tokens.Revoke(r.Context(), current.UserID, current.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
