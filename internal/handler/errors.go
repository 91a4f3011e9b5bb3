package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
)

// Error renders the error page for status. message may be empty, in which
// case the standard status text is shown.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	rd.Render(w, r, status, pageError, View{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}

// Forbidden is the deny handler for auth.Require.
func (rd *Renderer) Forbidden(w http.ResponseWriter, r *http.Request) {
	rd.Error(w, r, http.StatusForbidden, "You are not allowed to do that.")
}

// NotFound is the router's handler for unmatched paths.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Error(w, r, http.StatusNotFound, "That page does not exist.")
}

// MethodNotAllowed is the router's handler for a known path with the wrong method.
func (rd *Renderer) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rd.Error(w, r, http.StatusMethodNotAllowed, "")
}

// HandleError maps a service error to an error page.
//
// ERROR MAPPING:
//
//	apperror.ErrForbidden  → 403
//	apperror.ErrNotFound   → 404
//	apperror.ErrConflict   → 409
//	apperror.ErrValidation → 400
//	anything else          → 500, logged, details hidden
//
// Form-level kinds (validation, conflict, credentials) are usually handled by
// the caller as field errors or flashes before reaching here.
func (rd *Renderer) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrForbidden):
			rd.Error(w, r, http.StatusForbidden, appErr.Message)
			return
		case errors.Is(err, apperror.ErrNotFound):
			rd.Error(w, r, http.StatusNotFound, appErr.Message)
			return
		case errors.Is(err, apperror.ErrConflict):
			rd.Error(w, r, http.StatusConflict, appErr.Message)
			return
		case errors.Is(err, apperror.ErrValidation):
			rd.Error(w, r, http.StatusBadRequest, appErr.Message)
			return
		}
	}

	// NEVER expose internal error details: they may contain SQL or file paths.
	rd.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	rd.Error(w, r, http.StatusInternalServerError, "Something went wrong on our side.")
}
