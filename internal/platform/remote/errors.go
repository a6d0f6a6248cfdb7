// Package remote holds the plumbing shared by HTTP adapters for external
// collaborators (ledger node, pinning gateway): a minimal HTTP client
// interface, request execution, and a normalized failure taxonomy.
package remote

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for remote calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorRejected       ErrorCategory = "rejected"
	ErrorInternal       ErrorCategory = "internal"
)

// Error wraps a remote failure with its category.
type Error struct {
	Category ErrorCategory
	Service  string
	// Code is the error code reported by the remote, if any.
	Code       string
	Message    string
	Underlying error
	// Retryable is set for timeout, outage and rate-limited failures.
	Retryable bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Service, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Service, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates an Error with automatic retry classification.
func NewError(category ErrorCategory, service, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Service:    service,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
	}
}

// CategoryOf returns the category of a remote error, or "" for other errors.
func CategoryOf(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// IsRetryable reports whether err is a transient remote failure.
func IsRetryable(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Retryable
}
