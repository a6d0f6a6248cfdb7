package models

import (
	"encoding/json"
	"time"

	"dim/internal/category"
	"dim/internal/ledger"
	"dim/pkg/domain"
)

// Outcome tells the caller what a lifecycle call did to ledger state.
type Outcome string

const (
	// OutcomeApplied means the call changed ledger state.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoOp means the ledger was already in the requested state.
	OutcomeNoOp Outcome = "no_op"
	// OutcomeSuperseded means a concurrent call reached the same entity first.
	OutcomeSuperseded Outcome = "superseded"
)

// RequestResult is returned by RequestCredential and ReviewRequest.
type RequestResult struct {
	Outcome    Outcome                   `json:"outcome"`
	Request    *ledger.CredentialRequest `json:"request,omitempty"`
	Credential *ledger.CredentialRef     `json:"credential,omitempty"`
}

// IssuerResult is returned by ApproveIssuer and RevokeIssuer.
type IssuerResult struct {
	Outcome  Outcome        `json:"outcome"`
	Issuer   domain.Address `json:"issuer"`
	Approved bool           `json:"approved"`
}

// RevokeResult is returned by RevokeCredential.
type RevokeResult struct {
	Outcome    Outcome              `json:"outcome"`
	Credential ledger.CredentialRef `json:"credential"`
}

// IssueResult is returned by IssueCredential.
type IssueResult struct {
	Outcome    Outcome              `json:"outcome"`
	Credential ledger.CredentialRef `json:"credential"`
}

// Metadata is the identity metadata document stored in the blob store.
type Metadata struct {
	Name         string `json:"name,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// AnonymousName is used when identity metadata is missing or unreadable.
const AnonymousName = "Anonymous"

// DecodeMetadata parses a metadata document. Unreadable documents yield an
// anonymous profile rather than an error.
func DecodeMetadata(raw []byte) Metadata {
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil || m.Name == "" {
		m.Name = AnonymousName
	}
	return m
}

// IssuerDetail describes who issued one of the holder's credentials.
type IssuerDetail struct {
	Issuer   domain.Address `json:"issuer"`
	Type     string         `json:"type"`
	Approved bool           `json:"approved"`
}

// HolderData is everything the agent knows about a holder. Disclosure
// projects a consented subset of Fields out of it.
type HolderData struct {
	Account          domain.Address      `json:"account"`
	Registered       bool                `json:"registered"`
	Pending          bool                `json:"pending,omitempty"`
	Name             string              `json:"name"`
	ProfileImage     string              `json:"profileImage,omitempty"`
	Credentials      []ledger.Credential `json:"credentials"`
	CredentialCount  int                 `json:"credentialCount"`
	RegistrationDate *time.Time          `json:"registrationDate,omitempty"`
	IssuerDetails    []IssuerDetail      `json:"issuerDetails"`
}

// Fields flattens the holder data into the field names used by the category catalog.
func (h HolderData) Fields() map[string]any {
	fields := map[string]any{
		category.FieldAccount:         h.Account,
		category.FieldName:            h.Name,
		category.FieldCredentialCount: h.CredentialCount,
		category.FieldCredentials:     h.Credentials,
		category.FieldIssuerDetails:   h.IssuerDetails,
	}
	if h.ProfileImage != "" {
		fields[category.FieldProfileImage] = h.ProfileImage
	}
	if h.RegistrationDate != nil {
		fields[category.FieldRegistrationDate] = h.RegistrationDate.UTC().Format(time.RFC3339)
	}
	return fields
}
