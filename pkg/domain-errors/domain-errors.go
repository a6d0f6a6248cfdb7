package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeRateLimited        Code = "rate_limited"

	// Identity lifecycle preconditions and idempotency guards.
	CodeNotRegistered     Code = "not_registered"
	CodeAlreadyRegistered Code = "already_registered"
	CodeAlreadyReviewed   Code = "already_reviewed"
	CodeAlreadyRevoked    Code = "already_revoked"

	// Disclosure.
	CodeUnknownCategory  Code = "unknown_category"
	CodeSignatureInvalid Code = "signature_invalid"
	CodeSignerMismatch   Code = "signer_mismatch"
	CodeProofExpired     Code = "proof_expired"

	// Collaborator faults. Indeterminate means the side effect may have landed.
	CodeIndeterminate    Code = "indeterminate"
	CodeStoreUnavailable Code = "store_unavailable"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain,
// or CodeInternal for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsTransient reports whether the caller may try again after re-querying state.
// Terminal errors (unauthorized, already reviewed, ...) return false.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case CodeIndeterminate, CodeStoreUnavailable, CodeTimeout:
		return true
	default:
		return false
	}
}
