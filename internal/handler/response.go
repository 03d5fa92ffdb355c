package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// success shape per resource and one error shape overall:
//
//	{"error": "not_found", "message": "listing not found with id abc123"}
//
// Domain errors from the service layer are mapped to status codes here and
// nowhere else. Services don't know about HTTP.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/sakif/estate-portal/internal/apperror"
)

// maxJSONBody caps JSON request bodies. Multipart bodies have their own cap.
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input field, if any
}

// MessageResponse is the body of actions that return nothing else.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data as JSON with the given status. Headers must be set
// before WriteHeader; anything after it is ignored by net/http.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already, all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error chain to a status code and error kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError logs err and maps it to a response. Typed application errors
// carry their message to the client; anything else becomes a generic 500
// so SQL, file paths and SDK messages never leak.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, kind := statusFor(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	logger.Debug("request rejected",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Malformed bodies become validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("", "request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body must not be empty")
		default:
			return apperror.ValidationFailed("", fmt.Sprintf("invalid JSON body: %v", err))
		}
	}
	return nil
}

// mediaType returns the request's Content-Type without parameters.
func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func isMultipart(r *http.Request) bool {
	return mediaType(r) == "multipart/form-data"
}

// isForm reports whether the body is an HTML form post (urlencoded or
// multipart) rather than JSON.
func isForm(r *http.Request) bool {
	switch mediaType(r) {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return true
	}
	return false
}
