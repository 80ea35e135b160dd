package api

import (
	"net/http"
	"strings"

	"storefront/internal/rates"
	"storefront/internal/tenant"
)

type SecureTestResponse struct {
	Message string `json:"message"`
	StoreID int64  `json:"store_id"`
}

type ConvertResponse struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// @Summary Health check
// @Tags API
// @Produce json
// @Success 200 {object} map[string]string
// @Router /v1/health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary Verify an API key
// @Tags API
// @Security ApiKeyAuth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SecureTestResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/secure/test [get]
func (a *API) SecureTest(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrTenantNotResolved)
		return
	}
	writeJSON(w, http.StatusOK, SecureTestResponse{Message: "API key valid", StoreID: storeID})
}

// @Summary List the key owner's pages
// @Tags API
// @Security ApiKeyAuth
// @Security BearerAuth
// @Produce json
// @Param search query string false "Title or slug contains"
// @Param status query string false "active, draft or archived"
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page (1-100)"
// @Success 200 {object} model.PageList
// @Failure 401 {object} ErrorResponse
// @Router /v1/pages [get]
func (a *API) APIListPages(w http.ResponseWriter, r *http.Request) {
	a.listPages(w, r)
}

// @Summary Create a page for the key owner
// @Tags API
// @Security ApiKeyAuth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body PageRequest true "Page"
// @Success 201 {object} model.Page
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/pages [post]
func (a *API) APICreatePage(w http.ResponseWriter, r *http.Request) {
	a.createPage(w, r)
}

// @Summary Convert between currencies
// @Tags API
// @Security ApiKeyAuth
// @Security BearerAuth
// @Produce json
// @Param from query string true "Source currency code"
// @Param to query string true "Target currency code"
// @Success 200 {object} ConvertResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/rates/convert [get]
func (a *API) ConvertRate(w http.ResponseWriter, r *http.Request) {
	from := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("from")))
	to := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("to")))
	if len(from) != 3 || len(to) != 3 {
		writeError(w, r, invalid("from and to must be 3-letter currency codes"))
		return
	}
	rate, err := rates.Convert(r.Context(), a.Rates, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConvertResponse{From: from, To: to, Rate: rate})
}
