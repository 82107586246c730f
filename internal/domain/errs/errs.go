// Package errs defines the typed error kinds used across the checkout domain,
// separating malformed-input failures from transport and upstream business failures.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports malformed cart, flow, or rule data. It is never
// retryable: the same input will fail the same way.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return "validation: " + e.Message
}

// NewValidation creates a ValidationError for a specific field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransportError reports a failure reaching an upstream collaborator: network
// errors, timeouts, and 5xx/429/408 responses.
type TransportError struct {
	Operation  string `json:"operation"`
	StatusCode int    `json:"statusCode,omitempty"`
	Err        error  `json:"-"`
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport: %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the operation is advisable.
// Network-level failures and 5xx/429/408 responses qualify.
func (e *TransportError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}

// BusinessError reports an upstream 4xx rejection (insufficient stock, invalid
// coupon). The upstream message is preserved and the error is not retryable.
type BusinessError struct {
	Operation  string `json:"operation"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("business: %s: %s (status %d)", e.Operation, e.Message, e.StatusCode)
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// transport failure.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsBusiness reports whether err is an upstream business rejection.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}
