package handler

import (
	"strings"
	"time"

	"dim/internal/session/service"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/validation"
)

type ChallengeRequest struct {
	Account string `json:"account" validate:"required"`
}

func (r *ChallengeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Account = strings.TrimSpace(r.Account)
}

func (r *ChallengeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	_, err := domain.ParseAddress(r.Account)
	return err
}

// VerifyRequest is a signed challenge. Timestamp is the Unix millisecond time
// the wallet put in the signed message.
type VerifyRequest struct {
	ChallengeID string `json:"challengeId" validate:"required"`
	Account     string `json:"account" validate:"required"`
	Timestamp   int64  `json:"timestamp" validate:"required,gt=0"`
	Signature   string `json:"signature" validate:"required,startswith=0x"`
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.ChallengeID = strings.TrimSpace(r.ChallengeID)
	r.Account = strings.TrimSpace(r.Account)
	r.Signature = strings.TrimSpace(r.Signature)
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if _, err := domain.ParseChallengeID(r.ChallengeID); err != nil {
		return err
	}
	_, err := domain.ParseAddress(r.Account)
	return err
}

// Command converts the request. Call after Validate.
func (r *VerifyRequest) Command() service.VerifyCommand {
	id, _ := domain.ParseChallengeID(r.ChallengeID)
	account, _ := domain.ParseAddress(r.Account)
	return service.VerifyCommand{
		ChallengeID: id,
		Account:     account,
		SignedAt:    time.UnixMilli(r.Timestamp).UTC(),
		Signature:   r.Signature,
	}
}
