// Package handlers provides the HTTP handlers for the catalog API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// Envelope is the JSON body shape shared by all non-image endpoints:
// a "success" flag plus endpoint-specific fields.
type Envelope map[string]any

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK writes a 200 response with success=true and the given extra fields.
func OK(w http.ResponseWriter, fields Envelope) {
	body := Envelope{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// Fail writes an error response with success=false and a message.
func Fail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{
		"success": false,
		"error":   message,
	})
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message string) {
	Fail(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter, message string) {
	Fail(w, http.StatusUnauthorized, message)
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message string) {
	Fail(w, http.StatusNotFound, message)
}

// Conflict writes a 409 error response.
func Conflict(w http.ResponseWriter, message string) {
	Fail(w, http.StatusConflict, message)
}

// InternalServerError writes a 500 error response.
func InternalServerError(w http.ResponseWriter, message string) {
	Fail(w, http.StatusInternalServerError, message)
}

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is
// written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// catalogError maps domain errors onto the status code taxonomy:
// duplicates are 409, missing targets 404, everything else 500.
func catalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrDuplicateImage), errors.Is(err, models.ErrDuplicateCategory):
		Conflict(w, err.Error())
	case errors.Is(err, models.ErrImageNotFound), errors.Is(err, models.ErrCategoryNotFound),
		errors.Is(err, models.ErrTaskNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, models.ErrInvalidFormat):
		BadRequest(w, err.Error())
	default:
		InternalServerError(w, err.Error())
	}
}
