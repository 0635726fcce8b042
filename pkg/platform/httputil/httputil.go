// Package httputil holds the JSON response and error envelope helpers shared
// by HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"clerk/pkg/platform/sentinel"
)

// MaxBodyBytes caps decoded request bodies.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and error code. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: code}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = err.Error()
	}
	WriteJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sentinel.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// Validatable request bodies check and normalize themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeJSON decodes a size-limited JSON body into T and validates it when T
// implements Validatable. Failures wrap sentinel.ErrInvalidInput.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("request body is required: %w", sentinel.ErrInvalidInput)
		}
		return nil, fmt.Errorf("invalid JSON body: %w: %w", sentinel.ErrInvalidInput, err)
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			if errors.Is(err, sentinel.ErrInvalidInput) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", sentinel.ErrInvalidInput, err)
		}
	}
	return &req, nil
}
