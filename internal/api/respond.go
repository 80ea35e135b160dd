package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/logging"
	"storefront/internal/manager"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/storage"
	"storefront/internal/tenant"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message  string `json:"message"`
	Affected int64  `json:"affected,omitempty"`
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError is the single place errors become status codes. Anything
// unrecognised is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{verr.msg})
	case errors.Is(err, model.ErrInvalidStatus), errors.Is(err, manager.ErrInvalidStore):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{err.Error()})
	case errors.Is(err, tenant.ErrTenantNotResolved), errors.Is(err, tenant.ErrTenantNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{"store not found"})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{"Not Found"})
	case errors.Is(err, storage.ErrDuplicate):
		writeJSON(w, http.StatusConflict, ErrorResponse{"already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{"Unauthorized"})
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidCode):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{err.Error()})
	case errors.Is(err, notify.ErrThrottled):
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{"Too Many Requests"})
	default:
		logging.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{"Internal Server Error"})
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, tenant.ErrTenantNotFound) || errors.Is(err, storage.ErrNotFound)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, model.ErrInvalidStatus) {
			return err
		}
		return invalid("invalid request body")
	}
	return nil
}

func intParam(value, name string, min, max, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < min || (max > 0 && n > max) {
		if max > 0 {
			return 0, invalid("%s must be an integer between %d and %d", name, min, max)
		}
		return 0, invalid("%s must be an integer of at least %d", name, min)
	}
	return n, nil
}

func idParam(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid id")
	}
	return id, nil
}

// pageFilter reads search, status, page and per_page from the query string.
func pageFilter(r *http.Request) (model.PageFilter, error) {
	q := r.URL.Query()
	f := model.PageFilter{Search: q.Get("search")}

	if s := q.Get("status"); s != "" {
		status, err := model.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = status
	}

	var err error
	if f.Page, err = intParam(q.Get("page"), "page", 1, 0, 1); err != nil {
		return f, err
	}
	if f.PerPage, err = intParam(q.Get("per_page"), "per_page", 1, storage.MaxPerPage, storage.DefaultPerPage); err != nil {
		return f, err
	}
	return f, nil
}
