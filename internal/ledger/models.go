package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

// Identity is a holder's on-ledger identity. Registered never reverts to false.
type Identity struct {
	Address         domain.Address `json:"address"`
	Registered      bool           `json:"registered"`
	MetadataLocator domain.Locator `json:"metadata_locator,omitempty"`
	Owner           domain.Address `json:"owner,omitempty"`
	RegisteredAt    time.Time      `json:"registered_at,omitzero"`
	// Pending is set only by local caches between a successful register call
	// and its confirmation through the event feed.
	Pending bool `json:"pending,omitempty"`
}

// Issuer is an address that the admin may approve to review requests.
type Issuer struct {
	Address  domain.Address `json:"address"`
	Approved bool           `json:"approved"`
}

// CredentialRef identifies a credential by holder and position in the holder's list.
type CredentialRef struct {
	Holder domain.Address `json:"holder"`
	Index  uint64         `json:"index"`
}

func (r CredentialRef) String() string {
	return fmt.Sprintf("%s/%d", r.Holder, r.Index)
}

// Credential is issued to a holder. Issuer, holder and locator are immutable;
// Revoked is terminal.
type Credential struct {
	Ref         CredentialRef  `json:"ref"`
	Issuer      domain.Address `json:"issuer"`
	DataLocator domain.Locator `json:"data_locator"`
	IssuedAt    time.Time      `json:"issued_at"`
	Revoked     bool           `json:"revoked"`
	RevokedAt   *time.Time     `json:"revoked_at,omitempty"`
}

// IsValid reports whether the credential has not been revoked.
func (c Credential) IsValid() bool {
	return !c.Revoked
}

// RequestRef identifies a credential request by issuer and position in the issuer's queue.
type RequestRef struct {
	Issuer domain.Address `json:"issuer"`
	Index  uint64         `json:"index"`
}

func (r RequestRef) String() string {
	return fmt.Sprintf("%s/%d", r.Issuer, r.Index)
}

// ParseRequestRef parses the issuer/index form produced by String.
func ParseRequestRef(s string) (RequestRef, error) {
	issuer, index, ok := strings.Cut(s, "/")
	if !ok {
		return RequestRef{}, dErrors.New(dErrors.CodeInvalidInput, "request id must be issuer/index")
	}
	return NewRequestRef(issuer, index)
}

// NewRequestRef validates raw issuer and index values.
func NewRequestRef(issuer, index string) (RequestRef, error) {
	addr, err := domain.ParseAddress(issuer)
	if err != nil {
		return RequestRef{}, err
	}
	idx, err := strconv.ParseUint(index, 10, 64)
	if err != nil {
		return RequestRef{}, dErrors.New(dErrors.CodeInvalidInput, "request index must be a non-negative integer")
	}
	return RequestRef{Issuer: addr, Index: idx}, nil
}

// RequestStatus is the derived state of a credential request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// CredentialRequest asks an issuer to issue a credential. Once Reviewed is
// true, the (Reviewed, Approved) pair never changes again.
type CredentialRequest struct {
	Ref         RequestRef     `json:"ref"`
	Requester   domain.Address `json:"requester"`
	DataLocator domain.Locator `json:"data_locator"`
	RequestedAt time.Time      `json:"requested_at"`
	Reviewed    bool           `json:"reviewed"`
	Approved    bool           `json:"approved"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty"`
	// Credential is set when the request was approved.
	Credential *CredentialRef `json:"credential,omitempty"`
}

// Status derives Pending/Approved/Rejected. Approved is meaningless while pending.
func (r CredentialRequest) Status() RequestStatus {
	switch {
	case !r.Reviewed:
		return RequestPending
	case r.Approved:
		return RequestApproved
	default:
		return RequestRejected
	}
}

// Decision is an issuer's verdict on a request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}
