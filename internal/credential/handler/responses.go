package handler

import (
	"time"

	"dim/internal/credential/models"
	"dim/internal/ledger"
	"dim/pkg/domain"
)

type IdentityResponse struct {
	Address         domain.Address `json:"address"`
	Registered      bool           `json:"registered"`
	Pending         bool           `json:"pending"`
	MetadataLocator domain.Locator `json:"metadata_locator,omitempty"`
	RegisteredAt    *time.Time     `json:"registered_at,omitempty"`
}

func toIdentityResponse(id *ledger.Identity) IdentityResponse {
	resp := IdentityResponse{
		Address:         id.Address,
		Registered:      id.Registered,
		Pending:         id.Pending,
		MetadataLocator: id.MetadataLocator,
	}
	if !id.RegisteredAt.IsZero() {
		at := id.RegisteredAt
		resp.RegisteredAt = &at
	}
	return resp
}

type IssuerResponse struct {
	Issuer   domain.Address `json:"issuer"`
	Approved bool           `json:"approved"`
	Outcome  models.Outcome `json:"outcome,omitempty"`
}

type CredentialResponse struct {
	Holder      domain.Address `json:"holder"`
	Index       uint64         `json:"index"`
	Issuer      domain.Address `json:"issuer"`
	DataLocator domain.Locator `json:"data_locator"`
	IssuedAt    time.Time      `json:"issued_at"`
	Revoked     bool           `json:"revoked"`
	RevokedAt   *time.Time     `json:"revoked_at,omitempty"`
}

func toCredentialResponses(creds []ledger.Credential) []CredentialResponse {
	out := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, CredentialResponse{
			Holder:      c.Ref.Holder,
			Index:       c.Ref.Index,
			Issuer:      c.Issuer,
			DataLocator: c.DataLocator,
			IssuedAt:    c.IssuedAt,
			Revoked:     c.Revoked,
			RevokedAt:   c.RevokedAt,
		})
	}
	return out
}

type RequestResponse struct {
	ID          string               `json:"id"`
	Issuer      domain.Address       `json:"issuer"`
	Index       uint64               `json:"index"`
	Requester   domain.Address       `json:"requester"`
	DataLocator domain.Locator       `json:"data_locator"`
	RequestedAt time.Time            `json:"requested_at"`
	Status      ledger.RequestStatus `json:"status"`
	ReviewedAt  *time.Time           `json:"reviewed_at,omitempty"`
	Credential  *CredentialRef       `json:"credential,omitempty"`
}

type CredentialRef struct {
	Holder domain.Address `json:"holder"`
	Index  uint64         `json:"index"`
}

func toCredentialRef(ref *ledger.CredentialRef) *CredentialRef {
	if ref == nil {
		return nil
	}
	return &CredentialRef{Holder: ref.Holder, Index: ref.Index}
}

func toRequestResponse(r ledger.CredentialRequest) RequestResponse {
	return RequestResponse{
		ID:          r.Ref.String(),
		Issuer:      r.Ref.Issuer,
		Index:       r.Ref.Index,
		Requester:   r.Requester,
		DataLocator: r.DataLocator,
		RequestedAt: r.RequestedAt,
		Status:      r.Status(),
		ReviewedAt:  r.ReviewedAt,
		Credential:  toCredentialRef(r.Credential),
	}
}

func toRequestResponses(reqs []ledger.CredentialRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResponse(r))
	}
	return out
}

type ReviewResponse struct {
	Outcome    models.Outcome  `json:"outcome"`
	Request    RequestResponse `json:"request"`
	Credential *CredentialRef  `json:"credential,omitempty"`
}

type RevokeResponse struct {
	Outcome    models.Outcome `json:"outcome"`
	Credential CredentialRef  `json:"credential"`
}

type IssueResponse struct {
	Outcome    models.Outcome `json:"outcome"`
	Credential CredentialRef  `json:"credential"`
	Locator    domain.Locator `json:"data_locator"`
}
