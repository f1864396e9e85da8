// Package errs provides the error values handlers use to report failures
// that are safe to show to the client.
package errs

import (
	"errors"
	"net/http"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted carries an error along with the HTTP status the client receives.
// Its message is returned to the client as is.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code.
func NewTrusted(err error, status int) error {
	return &Trusted{Err: err, Status: status}
}

// BadRequest marks the error as a client mistake.
func BadRequest(err error) error {
	return NewTrusted(err, http.StatusBadRequest)
}

// NotFound marks the error as a lookup for something the ledger doesn't have.
func NotFound(err error) error {
	return NewTrusted(err, http.StatusNotFound)
}

// Error implements the error interface.
func (t *Trusted) Error() string {
	return t.Err.Error()
}

// Unwrap gives errors.Is and errors.As access to the wrapped error.
func (t *Trusted) Unwrap() error {
	return t.Err
}

// GetTrusted returns the trusted error in the chain or nil when there is none.
func GetTrusted(err error) *Trusted {
	var t *Trusted
	if !errors.As(err, &t) {
		return nil
	}
	return t
}
