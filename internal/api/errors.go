// Package api serves the aicleaner REST API: provider health, Home Assistant
// sensor state, circuit breaker control and image analysis.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Error types written in ErrorResponse.Error.Type.
const (
	ErrTypeAuthentication  = "authentication_error"
	ErrTypeNotFound        = "not_found"
	ErrTypeInvalidRequest  = "invalid_request"
	ErrTypeRequestTooLarge = "request_too_large"
	ErrTypeInternal        = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error type and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IsBodyTooLargeError checks if an error is from http.MaxBytesReader.
func IsBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, errorType, message string) {
	writeJSON(w, r, statusCode, ErrorResponse{
		Error: ErrorDetail{Type: errorType, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write response")
	}
}
