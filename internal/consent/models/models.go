package models

import (
	"slices"
	"strings"
	"time"

	"dim/internal/category"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

// Version is the only consent record schema this agent reads or writes.
const Version = "1.0"

// Scope identifies a consent record: one holder, one relying-party domain.
type Scope struct {
	Holder domain.Address
	Domain string
}

// NewScope normalizes the domain and rejects empty parts.
func NewScope(holder domain.Address, relyingParty string) (Scope, error) {
	if holder.IsZero() {
		return Scope{}, dErrors.New(dErrors.CodeInvariantViolation, "holder address required")
	}
	d := NormalizeDomain(relyingParty)
	if d == "" {
		return Scope{}, dErrors.New(dErrors.CodeBadRequest, "relying-party domain required")
	}
	if strings.ContainsAny(d, " /\t\n") {
		return Scope{}, dErrors.New(dErrors.CodeBadRequest, "relying-party domain must be a bare host name")
	}
	return Scope{Holder: holder, Domain: d}, nil
}

// NormalizeDomain lowercases and trims a relying-party domain.
func NormalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

func (s Scope) String() string {
	return s.Holder.String() + "-" + s.Domain
}

// Record is a holder's grant of data categories to one relying party.
// A new grant replaces the previous record for the same scope; categories
// are never merged.
type Record struct {
	Holder     domain.Address `json:"holder"`
	Domain     string         `json:"domain"`
	Categories []category.ID  `json:"categories"`
	GrantedAt  time.Time      `json:"grantedAt"`
	Signature  string         `json:"signature"`
	Version    string         `json:"version"`
	// Locator is the content address of the record's document. It is known
	// before the mirror write succeeds.
	Locator    domain.Locator `json:"locator"`
	MirroredAt *time.Time     `json:"mirroredAt,omitempty"`
}

// NewRecord builds a record with normalized categories. It fails with
// CodeUnknownCategory if any id is not in the catalog.
func NewRecord(scope Scope, ids []category.ID, grantedAt time.Time, signature string) (*Record, error) {
	ids = category.Normalize(ids)
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one data category required")
	}
	if err := category.Validate(ids); err != nil {
		return nil, err
	}
	if grantedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "grant time required")
	}
	if strings.TrimSpace(signature) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "consent signature required")
	}
	return &Record{
		Holder:     scope.Holder,
		Domain:     scope.Domain,
		Categories: ids,
		GrantedAt:  grantedAt.UTC().Truncate(time.Millisecond),
		Signature:  signature,
		Version:    Version,
	}, nil
}

func (r *Record) Scope() Scope {
	return Scope{Holder: r.Holder, Domain: r.Domain}
}

// Covers reports whether the record grants id.
func (r *Record) Covers(id category.ID) bool {
	return slices.Contains(r.Categories, id)
}

// Missing returns the ids in want that the record does not grant.
func (r *Record) Missing(want []category.ID) []category.ID {
	return category.Missing(want, r.Categories)
}

// Clone returns a deep copy so stores never share slices with callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Categories = slices.Clone(r.Categories)
	if r.MirroredAt != nil {
		t := *r.MirroredAt
		c.MirroredAt = &t
	}
	return &c
}

// GrantResult is returned by Grant. Warning is set when the blob mirror
// failed; the local record stands regardless.
type GrantResult struct {
	Record  *Record
	Locator domain.Locator
	Warning error
}

// MirrorState reports how far a mirror attempt got.
type MirrorState string

const (
	MirrorDone    MirrorState = "mirrored"
	MirrorPending MirrorState = "pending"
)

func (r *Record) MirrorState() MirrorState {
	if r.MirroredAt != nil {
		return MirrorDone
	}
	return MirrorPending
}
