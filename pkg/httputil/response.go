package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
	"github.com/KampusMeal/kampusmeal-backend/pkg/logger"
	"github.com/KampusMeal/kampusmeal-backend/pkg/validator"
)

// Response is the uniform JSON envelope used by every endpoint.
type Response struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Data       any       `json:"data,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope with the given status, message, and payload.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	})
}

// WriteError writes a failure envelope based on the error type. Known
// business-rule violations (AppError, sentinel errors) keep their message;
// anything else becomes a generic 500 whose detail is logged server-side
// only and never echoed to the client. It prefers the request-scoped logger
// from context over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	status := apperrors.HTTPStatus(err)
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		status = appErr.Status
		message = appErr.Message
	case status != http.StatusInternalServerError:
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeFailure(w, status, message, nil)
}

// WriteValidationError writes a 400 failure envelope with itemized
// field-level messages when the error comes from the validator package.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeFailure(w, http.StatusBadRequest, "request validation failed", valErr.Messages())
		return
	}

	writeFailure(w, http.StatusBadRequest, err.Error(), nil)
}

func writeFailure(w http.ResponseWriter, status int, message string, errs []string) {
	WriteJSON(w, status, Response{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Errors:     errs,
		Timestamp:  time.Now().UTC(),
	})
}
