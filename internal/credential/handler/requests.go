package handler

import (
	"encoding/json"
	"strings"

	"dim/internal/credential/models"
	"dim/internal/ledger"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/validation"
)

// maxDocumentBytes bounds inline JSON documents pinned on behalf of callers.
const maxDocumentBytes = 256 << 10

// RegisterIdentityRequest carries the identity metadata to pin.
type RegisterIdentityRequest struct {
	Name         string `json:"name" validate:"required,notblank,max=128"`
	ProfileImage string `json:"profileImage,omitempty" validate:"omitempty,max=512"`
}

func (r *RegisterIdentityRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.ProfileImage = strings.TrimSpace(r.ProfileImage)
}

func (r *RegisterIdentityRequest) Validate() error {
	return validation.Validate(r)
}

// Document returns the metadata blob for this identity.
func (r *RegisterIdentityRequest) Document() ([]byte, error) {
	return json.Marshal(models.Metadata{Name: r.Name, ProfileImage: r.ProfileImage})
}

// RequestCredentialRequest asks Issuer for a credential over Data.
type RequestCredentialRequest struct {
	Issuer string          `json:"issuer" validate:"required,eth_addr"`
	Data   json.RawMessage `json:"data" validate:"required"`

	issuer domain.Address
}

func (r *RequestCredentialRequest) Normalize() {
	r.Issuer = strings.TrimSpace(r.Issuer)
}

func (r *RequestCredentialRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	issuer, err := domain.ParseAddress(r.Issuer)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "issuer must be a 0x-prefixed 20-byte hex address")
	}
	r.issuer = issuer
	return validateDocument("data", r.Data)
}

// ReviewRequest carries an issuer's decision. Credential is required when
// approving and becomes the credential data blob.
type ReviewRequest struct {
	Decision   string          `json:"decision" validate:"required,oneof=approve reject"`
	Credential json.RawMessage `json:"credential,omitempty"`
}

func (r *ReviewRequest) Normalize() {
	r.Decision = strings.ToLower(strings.TrimSpace(r.Decision))
}

func (r *ReviewRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if ledger.Decision(r.Decision) == ledger.DecisionApprove {
		return validateDocument("credential", r.Credential)
	}
	return nil
}

// IssueCredentialRequest issues a credential without a prior request.
type IssueCredentialRequest struct {
	Holder string          `json:"holder" validate:"required,eth_addr"`
	Data   json.RawMessage `json:"data" validate:"required"`

	holder domain.Address
}

func (r *IssueCredentialRequest) Normalize() {
	r.Holder = strings.TrimSpace(r.Holder)
}

func (r *IssueCredentialRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	holder, err := domain.ParseAddress(r.Holder)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "holder must be a 0x-prefixed 20-byte hex address")
	}
	r.holder = holder
	return validateDocument("data", r.Data)
}

// validateDocument accepts a non-empty JSON object within the size cap.
func validateDocument(field string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len(raw) > maxDocumentBytes {
		return dErrors.New(dErrors.CodeValidation, field+" is too large")
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || len(obj) == 0 {
		return dErrors.New(dErrors.CodeValidation, field+" must be a non-empty JSON object")
	}
	return nil
}
