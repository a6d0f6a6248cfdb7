package audit

import (
	"time"

	"dim/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Actor     domain.Address `json:"actor"`
	Action    Action         `json:"action"`
	// Subject is the entity acted on: an address, request ref or credential ref.
	Subject string `json:"subject,omitempty"`
	// Domain is the relying party for consent and disclosure actions.
	Domain   string `json:"domain,omitempty"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Device   string `json:"device,omitempty"`
}

type Action string

const (
	ActionIdentityRegistered  Action = "identity_registered"
	ActionIssuerApproved      Action = "issuer_approved"
	ActionIssuerRevoked       Action = "issuer_revoked"
	ActionCredentialRequested Action = "credential_requested"
	ActionRequestReviewed     Action = "request_reviewed"
	ActionCredentialIssued    Action = "credential_issued"
	ActionCredentialRevoked   Action = "credential_revoked"
	ActionConsentGranted      Action = "consent_granted"
	ActionConsentRevoked      Action = "consent_revoked"
	ActionConsentRestored     Action = "consent_restored"
	ActionDisclosureIssued    Action = "disclosure_issued"
	ActionDisclosureDenied    Action = "disclosure_denied"
	ActionDisclosureVerified  Action = "disclosure_verified"
	ActionSessionCreated      Action = "session_created"
	ActionAuthFailed          Action = "auth_failed"
)

var knownActions = map[Action]struct{}{
	ActionIdentityRegistered:  {},
	ActionIssuerApproved:      {},
	ActionIssuerRevoked:       {},
	ActionCredentialRequested: {},
	ActionRequestReviewed:     {},
	ActionCredentialIssued:    {},
	ActionCredentialRevoked:   {},
	ActionConsentGranted:      {},
	ActionConsentRevoked:      {},
	ActionConsentRestored:     {},
	ActionDisclosureIssued:    {},
	ActionDisclosureDenied:    {},
	ActionDisclosureVerified:  {},
	ActionSessionCreated:      {},
	ActionAuthFailed:          {},
}

// Known reports whether a is one of the actions above.
func (a Action) Known() bool {
	_, ok := knownActions[a]
	return ok
}
