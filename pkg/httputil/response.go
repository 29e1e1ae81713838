// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sjlangley/social-golf-spa/pkg/apierrors"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"detail": message,
	})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes an internal server error response (500).
// The error itself stays out of the body.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// StatusForError maps an error kind to its HTTP status code.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, apierrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apierrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apierrors.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apierrors.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// WriteAPIError maps a classified error to its status code and
// caller-safe message. Anything classified as internal, and anything
// unclassified, responds with a generic 500 body.
func WriteAPIError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		WriteInternalError(w)
		return
	}
	WriteErrorMessage(w, status, apierrors.Message(err))
}
