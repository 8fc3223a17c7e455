// Package handler translates HTTP requests into service calls and service
// results (or errors) into JSON responses.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/marketplace-api/internal/apperror"
)

// ErrorResponse is the body of every error response: {"errors": {...}}.
type ErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

const msgInternal = "internal server error"

// writeJSON sends data as JSON with the given status code. Headers must be
// set before WriteHeader; anything set afterwards is dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError is the generic error handler shared by every route.
//
//	validation / conflict → 422 {"errors": {field: message}}
//	unauthorized          → 401 {"errors": {"message": ...}}
//	not found             → 404 {"errors": {"message": ...}}
//	anything else         → 500, logged with the request id; details are not sent
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrConflict):
			fields := appErr.FieldErrors()
			if fields == nil {
				fields = map[string]string{"message": appErr.Message}
			}
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Errors: fields})
			return
		case errors.Is(err, apperror.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Errors: map[string]string{"message": appErr.Message}})
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Errors: map[string]string{"message": appErr.Message}})
			return
		}
	}

	logger.Error("request failed",
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Errors: map[string]string{"message": msgInternal}})
}

// decodeJSON reads the request body into dst. An empty body leaves dst at
// its zero value so missing fields are reported by validation instead.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.ValidationFailed("body", apperror.MsgInvalid)
	}
	return nil
}
