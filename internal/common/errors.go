// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Configuration errors: a required external capability is unreachable
	// or unconfigured. Never retried.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Taxonomy errors.
	ErrNotFound          = errors.New("not found")
	ErrMalformedTaxonomy = errors.New("malformed taxonomy data")

	// Classification errors.
	ErrClassificationFailed = errors.New("classification failed")
)

// TransportError indicates a network or HTTP-level failure calling an
// external capability. It carries the status and body so operators can tell
// "service down" from "service misbehaving".
type TransportError struct {
	Err    error
	Op     string
	Body   string
	Status int
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a request-level failure (connection refused,
// timeout) as a TransportError.
func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// NewStatusError builds a TransportError for a non-success HTTP status.
func NewStatusError(op string, status int, body string) error {
	return &TransportError{Op: op, Status: status, Body: body}
}

// SchemaError indicates an external capability replied successfully but its
// payload could not be parsed into the expected shape, or was empty.
type SchemaError struct {
	Err error
	Op  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewSchemaError wraps a parse or shape-validation failure as a SchemaError.
func NewSchemaError(op string, err error) error {
	return &SchemaError{Op: op, Err: err}
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsSchema reports whether err is a schema failure.
func IsSchema(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsRetryable determines if an error should trigger a retry. Schema and
// configuration failures never are; transport failures are unless the
// service rejected the request outright.
func IsRetryable(err error) bool {
	if IsSchema(err) || errors.Is(err, ErrMissingConfig) || errors.Is(err, ErrInvalidConfig) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Status == 0 {
			return true
		}
		return te.Status == 429 || te.Status >= 500
	}
	return false
}
