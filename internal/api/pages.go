package api

import (
	"context"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/storage"
	"storefront/internal/tenant"
)

const maxFieldLength = 255

// PageRequest is the editable part of a page. StoreID is accepted for
// compatibility and ignored whenever a store is bound to the request.
type PageRequest struct {
	Title           string       `json:"title"`
	Slug            string       `json:"slug"`
	MetaTitle       string       `json:"meta_title"`
	MetaDescription string       `json:"meta_description"`
	MetaKeywords    string       `json:"meta_keywords"`
	Content         string       `json:"content"`
	Status          model.Status `json:"status"`
	StoreID         *int64       `json:"store_id,omitempty"`
}

type BulkRequest struct {
	IDs    []int64 `json:"ids"`
	Action string  `json:"action"`
}

func (req PageRequest) page() (model.Page, error) {
	p := model.Page{
		StoreID:         req.StoreID,
		Title:           strings.TrimSpace(req.Title),
		Slug:            strings.TrimSpace(req.Slug),
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		MetaKeywords:    req.MetaKeywords,
		Content:         req.Content,
		Status:          req.Status,
	}
	if p.Title == "" {
		return p, invalid("title is required")
	}
	if utf8.RuneCountInString(p.Title) > maxFieldLength {
		return p, invalid("title may not be greater than %d characters", maxFieldLength)
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Title)
	}
	if p.Slug == "" || p.Slug != slugify(p.Slug) || len(p.Slug) > maxFieldLength {
		return p, invalid("slug must contain only lowercase letters, digits and dashes")
	}
	if utf8.RuneCountInString(p.MetaTitle) > maxFieldLength {
		return p, invalid("meta_title may not be greater than %d characters", maxFieldLength)
	}
	if p.Status == "" {
		return p, invalid("status is required")
	}
	return p, nil
}

// slugify lowercases s and joins its alphanumeric runs with single dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func currentUser(ctx context.Context) *int64 {
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		id := claims.UserID
		return &id
	}
	return nil
}

func (a *API) createPage(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.page()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.CreatedBy = currentUser(r.Context())

	created, err := a.Pages.CreatePage(r.Context(), scope, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listPages(w http.ResponseWriter, r *http.Request) {
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
	switch r.URL.Query().Get("trashed") {
	case "":
	case "only":
		f.OnlyTrashed = true
	case "with":
		f.IncludeTrashed = true
	default:
		writeError(w, r, invalid("trashed must be only or with"))
		return
	}

	list, err := a.Pages.ListPages(r.Context(), scope, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// @Summary List pages of the selected store
// @Tags Pages
// @Security BearerAuth
// @Produce json
// @Param search query string false "Title or slug contains"
// @Param status query string false "active, draft or archived"
// @Param trashed query string false "only: soft-deleted pages; with: live and soft-deleted pages"
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page (1-100)"
// @Success 200 {object} model.PageList
// @Failure 409 {object} ErrorResponse
// @Router /pages [get]
func (a *API) ListPages(w http.ResponseWriter, r *http.Request) {
	a.listPages(w, r)
}

// @Summary Create a page
// @Tags Pages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body PageRequest true "Page"
// @Success 201 {object} model.Page
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /pages [post]
func (a *API) CreatePage(w http.ResponseWriter, r *http.Request) {
	a.createPage(w, r)
}

// @Summary Show a page
// @Tags Pages
// @Security BearerAuth
// @Produce json
// @Param id path int true "Page ID"
// @Success 200 {object} model.Page
// @Failure 404 {object} ErrorResponse
// @Router /pages/{id} [get]
func (a *API) ShowPage(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.Pages.GetPage(r.Context(), scope, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// @Summary Update a page
// @Tags Pages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Page ID"
// @Param body body PageRequest true "Page"
// @Success 200 {object} model.Page
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /pages/{id} [put]
func (a *API) UpdatePage(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.page()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id
	p.UpdatedBy = currentUser(r.Context())

	updated, err := a.Pages.UpdatePage(r.Context(), scope, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// @Summary Move a page to the trash
// @Tags Pages
// @Security BearerAuth
// @Param id path int true "Page ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /pages/{id} [delete]
func (a *API) DeletePage(w http.ResponseWriter, r *http.Request) {
	a.singlePage(w, r, a.Pages.SoftDeletePages)
}

// @Summary Restore a trashed page
// @Tags Pages
// @Security BearerAuth
// @Param id path int true "Page ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /pages/{id}/restore [post]
func (a *API) RestorePage(w http.ResponseWriter, r *http.Request) {
	a.singlePage(w, r, a.Pages.RestorePages)
}

func (a *API) singlePage(w http.ResponseWriter, r *http.Request, op func(context.Context, tenant.Scope, []int64) (int64, error)) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := op(r.Context(), scope, []int64{id})
	if err == nil && n == 0 {
		err = storage.ErrNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Apply an action to several pages
// @Tags Pages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body BulkRequest true "active, draft, archived, delete or delete_permanently"
// @Success 200 {object} MessageResponse
// @Failure 422 {object} ErrorResponse
// @Router /pages/bulk [post]
func (a *API) BulkPages(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req BulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, invalid("ids are required"))
		return
	}

	var (
		n   int64
		msg string
	)
	switch req.Action {
	case "delete":
		n, err = a.Pages.SoftDeletePages(r.Context(), scope, req.IDs)
		msg = "pages moved to trash"
	case "delete_permanently":
		n, err = a.Pages.PurgePages(r.Context(), scope, req.IDs)
		msg = "pages permanently deleted"
	default:
		status, perr := model.ParseStatus(req.Action)
		if perr != nil {
			writeError(w, r, invalid("action must be active, draft, archived, delete or delete_permanently"))
			return
		}
		n, err = a.Pages.SetPagesStatus(r.Context(), scope, req.IDs, status, currentUser(r.Context()))
		msg = "status updated to " + string(status)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg, Affected: n})
}
