package handler

import (
	"strings"

	"dim/internal/category"
	"dim/internal/disclosure/models"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/validation"
)

// DiscloseRequest is a relying party asking for categories of the holder's data.
type DiscloseRequest struct {
	Domain     string   `json:"domain" validate:"required,max=253,hostname_rfc1123|hostname_port"`
	Categories []string `json:"categories" validate:"required,min=1,max=16,dive,notblank"`
}

func (r *DiscloseRequest) Normalize() {
	if r == nil {
		return
	}
	r.Domain = strings.ToLower(strings.TrimSpace(r.Domain))
	for i, c := range r.Categories {
		r.Categories[i] = strings.TrimSpace(c)
	}
}

func (r *DiscloseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func (r *DiscloseRequest) IDs() []category.ID {
	ids := make([]category.ID, len(r.Categories))
	for i, c := range r.Categories {
		ids[i] = category.ID(c)
	}
	return ids
}

// VerifyRequest carries a proof received by a relying party. Data inside the
// proof is optional; when present its hash is checked too.
type VerifyRequest struct {
	Proof          *models.Proof `json:"proof" validate:"required"`
	ExpectedSigner string        `json:"expectedSigner" validate:"required"`
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.ExpectedSigner = strings.TrimSpace(r.ExpectedSigner)
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if _, err := domain.ParseAddress(r.ExpectedSigner); err != nil {
		return err
	}
	if _, err := domain.ParseAddress(r.Proof.Signer.String()); err != nil {
		return dErrors.New(dErrors.CodeValidation, "proof signer is not an address")
	}
	if r.Proof.DataHash == "" || r.Proof.Signature == "" || r.Proof.Timestamp <= 0 {
		return dErrors.New(dErrors.CodeValidation, "proof must carry dataHash, signature and timestamp")
	}
	return nil
}

// Expected returns the parsed expected signer. Call after Validate.
func (r *VerifyRequest) Expected() domain.Address {
	addr, _ := domain.ParseAddress(r.ExpectedSigner)
	return addr
}
