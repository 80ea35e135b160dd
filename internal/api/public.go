package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/model"
	"storefront/internal/tenant"
)

// StoreSummary is the public view of a store.
type StoreSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ShopName   string `json:"shop_name"`
	ShopDomain string `json:"shop_domain"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Country    string `json:"country,omitempty"`
}

// @Summary Store home
// @Tags Public
// @Produce json
// @Success 200 {object} StoreSummary
// @Failure 404 {object} ErrorResponse
// @Router / [get]
func (a *API) StoreHome(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrTenantNotResolved)
		return
	}
	st, err := a.Stores.GetStore(r.Context(), storeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StoreSummary{
		ID:         st.ID,
		Name:       st.Name,
		ShopName:   st.ShopName,
		ShopDomain: st.ShopDomain,
		Email:      st.Email,
		Phone:      st.Phone,
		Country:    st.Country,
	})
}

// @Summary List published pages
// @Tags Public
// @Produce json
// @Param search query string false "Title or slug contains"
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page (1-100)"
// @Success 200 {object} model.PageList
// @Failure 404 {object} ErrorResponse
// @Router /pages [get]
func (a *API) PublicPages(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := pageFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Status = model.StatusActive

	list, err := a.Pages.ListPages(r.Context(), scope, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// @Summary Show a published page
// @Tags Public
// @Produce json
// @Param slug path string true "Page slug"
// @Success 200 {object} model.Page
// @Failure 404 {object} ErrorResponse
// @Router /pages/{slug} [get]
func (a *API) PublicPage(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.Pages.ActivePageBySlug(r.Context(), scope, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
