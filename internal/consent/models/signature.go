package models

import (
	"context"
	"errors"
	"time"

	"dim/internal/category"
	"dim/internal/signer"
	dErrors "dim/pkg/domain-errors"
)

// Sign produces the holder signature for granting ids to scope at the given time.
// s must sign for scope.Holder.
func Sign(ctx context.Context, s signer.Signer, scope Scope, ids []category.ID, at time.Time) (string, error) {
	sig, err := s.Sign(ctx, []byte(SignatureMessage(scope, ids, at)))
	if err != nil {
		return "", err
	}
	return signer.EncodeSignature(sig), nil
}

// VerifySignature checks that Signature was produced by the record's holder
// over the consent message for its domain, categories and grant time.
func (r *Record) VerifySignature() error {
	sig, err := signer.DecodeSignature(r.Signature)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeSignatureInvalid, "consent signature is malformed")
	}
	msg := SignatureMessage(r.Scope(), r.Categories, r.GrantedAt)
	switch err := signer.Verify([]byte(msg), sig, r.Holder); {
	case err == nil:
		return nil
	case errors.Is(err, signer.ErrSignerMismatch):
		return dErrors.Wrap(err, dErrors.CodeSignerMismatch, "consent was not signed by the holder")
	default:
		return dErrors.Wrap(err, dErrors.CodeSignatureInvalid, "consent signature does not verify")
	}
}
