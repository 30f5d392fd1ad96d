package client

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the order service. The state the caller
// held before the request is still valid.
type APIError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"error"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("order service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("order service returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// NotFound reports whether the service answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Conflict reports whether the service answered 409, i.e. the order moved on
// since it was read.
func (e *APIError) Conflict() bool {
	return e.StatusCode == http.StatusConflict
}
