package transport

import (
	"encoding/json"
	"net/http"
)

// Error types used in JSON error bodies.
const (
	ErrorTypeInvalidRequest  = "invalid_request" // 400: malformed parameters
	ErrorTypeUnauthenticated = "unauthenticated" // 401: no authenticator said yes
	ErrorTypeNotFound        = "not_found"       // 404: unknown entry or evaluation
	ErrorTypeUnavailable     = "unavailable"     // 501/503: feature disabled or backend down
	ErrorTypeServer          = "server_error"    // 500
)

// APIError is the payload of an error response.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError for serialization.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; an encoding failure has nowhere to go.
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: &APIError{Type: errType, Message: message}})
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	// Marshal first so a failure can still become a 500.
	data, err := json.Marshal(v)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrorTypeServer, "encoding response")
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(data, '\n'))
	return err
}
