package apiclient

import (
	"fmt"
	"net/http"
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// IsAuthError returns true if the request was rejected for a bad token.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFound returns true if the target resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict returns true if the request collided with existing state,
// such as uploading a duplicate image.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}
