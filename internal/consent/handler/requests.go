package handler

import (
	"strings"
	"time"

	"dim/internal/category"
	"dim/internal/consent/models"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/validation"
)

// GrantRequest lists the categories granted to Domain. Signature is the
// holder's personal signature over the consent message at SignedAt (unix
// milliseconds); the agent signs when both are omitted.
type GrantRequest struct {
	Domain     string   `json:"domain" validate:"required,max=253,hostname_rfc1123|hostname_port"`
	Categories []string `json:"categories" validate:"required,min=1,max=16,dive,notblank"`
	Signature  string   `json:"signature,omitempty" validate:"required_with=SignedAt,omitempty,startswith=0x,len=132,hexadecimal"`
	SignedAt   int64    `json:"signedAt,omitempty" validate:"required_with=Signature,omitempty,gt=0"`
}

// Normalize applies business defaults and sanitizes inputs.
func (r *GrantRequest) Normalize() {
	if r == nil {
		return
	}
	r.Domain = models.NormalizeDomain(r.Domain)
	for i, c := range r.Categories {
		r.Categories[i] = strings.TrimSpace(c)
	}
	r.Signature = strings.TrimSpace(r.Signature)
}

// Validate checks shape only. Category ids are checked against the catalog
// by the service so unknown ids keep their own error code.
func (r *GrantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// SignedTime returns SignedAt as a time, or the zero time when unset.
func (r *GrantRequest) SignedTime() time.Time {
	if r.SignedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.SignedAt).UTC()
}

// IDs converts the requested categories into catalog ids.
func (r *GrantRequest) IDs() []category.ID {
	return toIDs(r.Categories)
}

// RestoreRequest names a mirrored consent document.
type RestoreRequest struct {
	Locator string `json:"locator" validate:"required,locator"`
}

func (r *RestoreRequest) Normalize() {
	if r == nil {
		return
	}
	r.Locator = strings.TrimSpace(r.Locator)
}

func (r *RestoreRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func (r *RestoreRequest) ToLocator() domain.Locator {
	return domain.Locator(r.Locator)
}

func toIDs(in []string) []category.ID {
	ids := make([]category.ID, len(in))
	for i, c := range in {
		ids[i] = category.ID(c)
	}
	return ids
}
