package handler

import (
	"time"

	"dim/internal/category"
	"dim/internal/consent/models"
	"dim/pkg/domain"
)

// ConsentResponse is the API form of a consent record.
type ConsentResponse struct {
	Holder     domain.Address     `json:"holder"`
	Domain     string             `json:"domain"`
	Categories []category.ID      `json:"categories"`
	GrantedAt  time.Time          `json:"grantedAt"`
	Signature  string             `json:"signature"`
	Version    string             `json:"version"`
	Locator    domain.Locator     `json:"locator"`
	Mirror     models.MirrorState `json:"mirror"`
}

// GrantResponse reports a stored grant. Warning is set when the blob mirror
// is still pending.
type GrantResponse struct {
	Consent ConsentResponse `json:"consent"`
	Locator domain.Locator  `json:"locator"`
	Warning string          `json:"warning,omitempty"`
}

type ListResponse struct {
	Consents []ConsentResponse `json:"consents"`
}

type RevokeResponse struct {
	Domain  string `json:"domain"`
	Revoked bool   `json:"revoked"`
}

type CheckResponse struct {
	Domain   string      `json:"domain"`
	Category category.ID `json:"category"`
	Granted  bool        `json:"granted"`
}

func toConsentResponse(r *models.Record) ConsentResponse {
	return ConsentResponse{
		Holder:     r.Holder,
		Domain:     r.Domain,
		Categories: r.Categories,
		GrantedAt:  r.GrantedAt,
		Signature:  r.Signature,
		Version:    r.Version,
		Locator:    r.Locator,
		Mirror:     r.MirrorState(),
	}
}

func toListResponse(recs []*models.Record) ListResponse {
	out := ListResponse{Consents: make([]ConsentResponse, 0, len(recs))}
	for _, r := range recs {
		out.Consents = append(out.Consents, toConsentResponse(r))
	}
	return out
}
