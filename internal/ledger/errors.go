package ledger

import (
	"errors"
	"fmt"
	"net/http"

	"dim/internal/sentinel"
)

// Ledger faults. Implementations return these (optionally wrapped) so that
// callers can translate them exactly once.
var (
	ErrNotAdmin           = errors.New("caller is not the admin")
	ErrNotIssuer          = errors.New("caller is not an approved issuer for this entity")
	ErrSelfApproval       = errors.New("an address cannot approve itself as issuer")
	ErrNotRegistered      = errors.New("identity is not registered")
	ErrAlreadyRegistered  = errors.New("identity already registered")
	ErrIssuerNotApproved  = errors.New("issuer is not approved")
	ErrAlreadyReviewed    = errors.New("request already reviewed")
	ErrAlreadyRevoked     = errors.New("credential already revoked")
	ErrRequestNotFound    = fmt.Errorf("credential request %w", sentinel.ErrNotFound)
	ErrCredentialNotFound = fmt.Errorf("credential %w", sentinel.ErrNotFound)
	ErrInvalidArgument    = fmt.Errorf("ledger argument: %w", sentinel.ErrInvalidInput)
)

type wireFault struct {
	err    error
	code   string
	status int
}

var wireFaults = []wireFault{
	{ErrNotAdmin, "not_admin", http.StatusForbidden},
	{ErrNotIssuer, "not_issuer", http.StatusForbidden},
	{ErrSelfApproval, "self_approval", http.StatusForbidden},
	{ErrNotRegistered, "not_registered", http.StatusPreconditionFailed},
	{ErrAlreadyRegistered, "already_registered", http.StatusConflict},
	{ErrIssuerNotApproved, "issuer_not_approved", http.StatusPreconditionFailed},
	{ErrAlreadyReviewed, "already_reviewed", http.StatusConflict},
	{ErrAlreadyRevoked, "already_revoked", http.StatusConflict},
	{ErrRequestNotFound, "request_not_found", http.StatusNotFound},
	{ErrCredentialNotFound, "credential_not_found", http.StatusNotFound},
	{ErrInvalidArgument, "invalid_argument", http.StatusBadRequest},
}

// WireCode maps a ledger fault to its wire code and HTTP status.
// ok is false for errors that are not ledger faults.
func WireCode(err error) (code string, status int, ok bool) {
	for _, f := range wireFaults {
		if errors.Is(err, f.err) {
			return f.code, f.status, true
		}
	}
	return "", 0, false
}

// FromWireCode maps a wire code back to its fault, or nil if unknown.
func FromWireCode(code string) error {
	for _, f := range wireFaults {
		if f.code == code {
			return f.err
		}
	}
	return nil
}
