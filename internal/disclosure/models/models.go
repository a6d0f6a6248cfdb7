package models

import (
	"strconv"
	"time"

	"dim/internal/category"
	"dim/pkg/domain"
)

// ProofVersion tags the payload layout of proofs produced by this agent.
const ProofVersion = "1"

// Meta fields added to every projection.
const (
	FieldConsentGiven      = "consentGiven"
	FieldConsentTimestamp  = "consentTimestamp"
	FieldGrantedCategories = "grantedCategories"
)

// Projection is the consented view of a holder's data. It always carries
// the holder account and consentGiven.
type Projection map[string]any

// ConsentGiven reports whether the projection came from a consent record.
func (p Projection) ConsentGiven() bool {
	given, _ := p[FieldConsentGiven].(bool)
	return given
}

// Fields returns the projection's keys.
func (p Projection) Fields() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	return out
}

// Proof is a signed statement over the hash of a field snapshot. The
// signature covers (DataHash, Timestamp, Signer) only; Data travels beside
// it so a relying party can check the hash when the holder sends it.
type Proof struct {
	Data      map[string]any `json:"data,omitempty"`
	DataHash  string         `json:"dataHash"`
	Timestamp int64          `json:"timestamp"`
	Signature string         `json:"signature"`
	Signer    domain.Address `json:"signer"`
	Version   string         `json:"version"`
}

// IssuedAt returns the proof timestamp as a time.
func (p *Proof) IssuedAt() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// Message is the text the signer signs for hash at ts.
func Message(dataHash string, ts int64, signer domain.Address) string {
	return "DIM Selective Disclosure\nData Hash: " + dataHash +
		"\nTimestamp: " + strconv.FormatInt(ts, 10) +
		"\nAccount: " + signer.String()
}

// Message rebuilds the signed payload of p.
func (p *Proof) Message() string {
	return Message(p.DataHash, p.Timestamp, p.Signer)
}

// Status is the outcome of a disclosure request.
type Status string

const (
	StatusDisclosed    Status = "disclosed"
	StatusNeedsConsent Status = "needs_consent"
)

// Disclosure answers a relying party's request for category ids. Missing
// lists the ids the holder still has to consent to when Status is
// StatusNeedsConsent; Proof is set only when Status is StatusDisclosed.
type Disclosure struct {
	Status    Status         `json:"status"`
	Holder    domain.Address `json:"holder"`
	Domain    string         `json:"domain"`
	Requested []category.ID  `json:"requested"`
	Missing   []category.ID  `json:"missing,omitempty"`
	Proof     *Proof         `json:"proof,omitempty"`
	Cached    bool           `json:"cached"`
}
