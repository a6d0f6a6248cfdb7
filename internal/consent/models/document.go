package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"dim/internal/category"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

// Document is the mirrored form of a consent record. Field names follow the
// wallet's stored consent layout so existing blobs stay readable.
type Document struct {
	Version     string        `json:"version"`
	UserAccount string        `json:"userAccount"`
	AppDomain   string        `json:"appDomain"`
	Permissions []category.ID `json:"permissions"`
	Timestamp   string        `json:"timestamp"`
	Signature   string        `json:"signature"`
}

const documentTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Document renders the record in its blob form.
func (r *Record) Document() Document {
	return Document{
		Version:     r.Version,
		UserAccount: r.Holder.String(),
		AppDomain:   r.Domain,
		Permissions: r.Categories,
		Timestamp:   r.GrantedAt.UTC().Format(documentTimeLayout),
		Signature:   r.Signature,
	}
}

// Encode returns the document bytes. The same record always encodes to the
// same bytes, so its locator can be computed before the mirror write.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r.Document())
}

// DecodeDocument parses a mirrored consent document. It fails closed: an
// unknown version or field, an unknown category, or any missing part is an
// error, never a default.
func DecodeDocument(raw []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed consent document")
	}
	if dec.More() {
		return nil, dErrors.New(dErrors.CodeValidation, "trailing data after consent document")
	}
	if doc.Version != Version {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported consent document version %q", doc.Version))
	}
	holder, err := domain.ParseAddress(doc.UserAccount)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "consent document account is not an address: "+err.Error())
	}
	scope, err := NewScope(holder, doc.AppDomain)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "consent document domain: "+err.Error())
	}
	if NormalizeDomain(doc.AppDomain) != doc.AppDomain {
		return nil, dErrors.New(dErrors.CodeValidation, "consent document domain is not normalized")
	}
	grantedAt, err := time.Parse(documentTimeLayout, doc.Timestamp)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "consent document timestamp")
	}
	if err := category.Validate(doc.Permissions); err != nil {
		return nil, err
	}
	rec, err := NewRecord(scope, doc.Permissions, grantedAt, doc.Signature)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(rec.Categories, doc.Permissions) {
		return nil, dErrors.New(dErrors.CodeValidation, "consent document permissions are not canonical")
	}
	return rec, nil
}

// SignatureMessage is the text a holder signs to grant consent.
func SignatureMessage(scope Scope, ids []category.ID, at time.Time) string {
	ids = category.Normalize(ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return "Grant consent to " + scope.Domain + " for: " + strings.Join(names, ", ") +
		"\nAccount: " + scope.Holder.String() +
		"\nTimestamp: " + strconv.FormatInt(at.UnixMilli(), 10)
}
