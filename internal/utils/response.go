// Package utils provides utility functions and helpers for the application.
// This file implements the response envelope shared by every endpoint.
//
// Successful responses look like
//
//	{"status":"success","token":"...","data":{"user":{...}}}
//
// and failures like
//
//	{"status":"fail","message":"...","errors":{"field":"..."}}
//
// where status is "fail" for 4xx and "error" for 5xx responses.
package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
)

// Response represents the standardized API envelope.
type Response struct {
	Status  string            `json:"status"`            // success, fail or error
	Token   string            `json:"token,omitempty"`   // Session token for login-like operations
	Message string            `json:"message,omitempty"` // Human-readable message
	Data    interface{}       `json:"data,omitempty"`    // Payload for successful responses
	Errors  map[string]string `json:"errors,omitempty"`  // Per-field validation messages
}

// StatusFor maps an HTTP status code to the envelope status value.
func StatusFor(statusCode int) string {
	switch {
	case statusCode >= 500:
		return constants.StatusError
	case statusCode >= 400:
		return constants.StatusFail
	default:
		return constants.StatusSuccess
	}
}

// JSON sends a response envelope carrying data.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	SendJSON(w, statusCode, Response{
		Status: StatusFor(statusCode),
		Data:   data,
	})
}

// WithToken sends a success envelope that carries a freshly issued session
// token next to the data.
func WithToken(w http.ResponseWriter, statusCode int, token string, data interface{}) {
	SendJSON(w, statusCode, Response{
		Status: StatusFor(statusCode),
		Token:  token,
		Data:   data,
	})
}

// Message sends an envelope with a message and no data.
func Message(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, Response{
		Status:  StatusFor(statusCode),
		Message: message,
	})
}

// Error sends a failure envelope with the given status code, message and
// optional per-field details.
func Error(w http.ResponseWriter, statusCode int, message string, details map[string]string) {
	SendJSON(w, statusCode, Response{
		Status:  StatusFor(statusCode),
		Message: message,
		Errors:  details,
	})
}

// ErrorFromAppError sends a failure envelope for an AppError. DevInfo is
// logged, never returned.
func ErrorFromAppError(w http.ResponseWriter, err *AppError) {
	if err == nil {
		err = NewInternalServerError(nil)
	}

	if err.StatusCode >= http.StatusInternalServerError {
		log.Error().
			Err(err.Err).
			Str("dev_info", err.DevInfo).
			Int("status", err.StatusCode).
			Msg(err.Message)
	}

	Error(w, err.StatusCode, err.Message, err.Details)
}

// SendJSON marshals data and writes it with proper headers.
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		if _, err := w.Write([]byte(`{"status":"error","message":"Failed to generate response"}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write error response")
		}
		return
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if _, err := w.Write(jsonData); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// NotFound sends a 404 Not Found response with the given message.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgResourceNotFound
	}
	Error(w, http.StatusNotFound, message, nil)
}

// MethodNotAllowed sends a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, constants.MsgMethodNotAllowed, nil)
}

// TooManyRequests sends a 429 response.
func TooManyRequests(w http.ResponseWriter) {
	ErrorFromAppError(w, NewRateLimitError())
}
