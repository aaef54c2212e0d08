// Package response writes JSON bodies and maps application errors to HTTP status codes.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ayush/finance-advisor/internal/apperror"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

func Created(w http.ResponseWriter, v any) {
	JSON(w, http.StatusCreated, v)
}

// BadRequest writes a 400 with a VALIDATION_FAILED code.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: "VALIDATION_FAILED", Message: message})
}

// Error maps err to a status code and body. Unavailable and unrecognised errors become a
// 500 carrying fallbackCode; their cause is logged and never sent.
func Error(w http.ResponseWriter, logger *slog.Logger, err error, fallbackCode string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && !errors.Is(err, apperror.ErrUnavailable) {
		JSON(w, statusOf(err), ErrorBody{Error: appErr.Code, Message: appErr.Message, Field: appErr.Field})
		return
	}

	logger.Error("request failed", slog.String("code", fallbackCode), slog.String("error", err.Error()))
	JSON(w, http.StatusInternalServerError, ErrorBody{
		Error:   fallbackCode,
		Message: "An internal error occurred",
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrUnknownIdentity),
		errors.Is(err, apperror.ErrCredentialMismatch),
		errors.Is(err, apperror.ErrDuplicateIdentity),
		errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
