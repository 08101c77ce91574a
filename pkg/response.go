package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
)

// APIResponse is the envelope every endpoint answers with.
//
//	{"success": true, "data": {...}, "message": "..."}
//	{"success": false, "message": "...", "error_code": "INVALID_TOKEN"}
type APIResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// JSON writes a successful envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, APIResponse{Success: true, Data: data})
}

// JSONMessage writes a successful envelope with a human readable message.
func JSONMessage(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, APIResponse{Success: true, Data: data, Message: message})
}

// Error writes a failure envelope. Domain sentinels are mapped to HTTP
// status codes; an *APIError carries its own status, message and code.
func Error(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		write(w, apiErr.Status, APIResponse{Success: false, Message: apiErr.Message, ErrorCode: apiErr.Code})
		return
	}

	status := mapErrorToStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		message = "internal server error"
	}
	write(w, status, APIResponse{Success: false, Message: message})
}

// ErrorWithMessage writes a failure envelope with a custom message.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, APIResponse{Success: false, Message: message})
}

// ErrorWithCode writes a failure envelope with a machine readable code.
func ErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	write(w, status, APIResponse{Success: false, Message: message, ErrorCode: code})
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// mapErrorToStatus walks the error chain with errors.Is so wrapped
// sentinels still resolve.
func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
