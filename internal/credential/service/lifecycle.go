package service

import (
	"context"
	"errors"

	"dim/internal/audit"
	"dim/internal/credential/models"
	"dim/internal/ledger"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

// RegisterIdentity registers caller's identity. The view marks it registered
// at once; the reconciler confirms it when the ledger event arrives.
func (s *Service) RegisterIdentity(ctx context.Context, caller domain.Address, metadata domain.Locator) (id *ledger.Identity, err error) {
	defer func() { s.observe(ctx, "register_identity", string(models.OutcomeApplied), err) }()
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing caller")
	}
	if metadata.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "metadata locator is required")
	}

	current, err := s.view.Identity(ctx, caller)
	if err != nil {
		return nil, s.readError("read identity", err)
	}
	if current.Registered {
		return nil, dErrors.New(dErrors.CodeAlreadyRegistered, "identity already registered")
	}

	err = s.call(ctx, "register_identity", func(ctx context.Context) error {
		return s.ledger.RegisterIdentity(ctx, caller, metadata)
	})
	if err != nil {
		return nil, s.writeError("register identity", err)
	}

	s.view.MarkRegisteredPending(ctx, caller, metadata)
	s.emitAudit(ctx, audit.Event{Actor: caller, Action: audit.ActionIdentityRegistered, Subject: caller.String()})
	return &ledger.Identity{
		Address:         caller,
		Registered:      true,
		MetadataLocator: metadata,
		Owner:           caller,
		Pending:         true,
	}, nil
}

// ApproveIssuer is admin only. Approving an approved issuer is a no-op.
func (s *Service) ApproveIssuer(ctx context.Context, caller, issuer domain.Address) (*models.IssuerResult, error) {
	return s.setIssuer(ctx, caller, issuer, true)
}

// RevokeIssuer is admin only. Revoking an unapproved issuer is a no-op.
// Credentials already issued by the issuer stay valid.
func (s *Service) RevokeIssuer(ctx context.Context, caller, issuer domain.Address) (*models.IssuerResult, error) {
	return s.setIssuer(ctx, caller, issuer, false)
}

func (s *Service) setIssuer(ctx context.Context, caller, issuer domain.Address, approve bool) (res *models.IssuerResult, err error) {
	op, action := "revoke_issuer", audit.ActionIssuerRevoked
	if approve {
		op, action = "approve_issuer", audit.ActionIssuerApproved
	}
	defer func() {
		outcome := ""
		if res != nil {
			outcome = string(res.Outcome)
		}
		s.observe(ctx, op, outcome, err)
	}()

	if issuer.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "issuer address is required")
	}
	admin, err := s.adminAddress(ctx)
	if err != nil {
		return nil, err
	}
	if caller != admin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the admin can change issuer approval")
	}
	if approve && issuer == caller {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "issuers are not self-approvable")
	}

	var approved bool
	err = s.call(ctx, "is_approved_issuer", func(ctx context.Context) error {
		approved, err = s.ledger.IsApprovedIssuer(ctx, issuer)
		return err
	})
	if err != nil {
		return nil, s.readError("read issuer", err)
	}
	if approved == approve {
		return &models.IssuerResult{Outcome: models.OutcomeNoOp, Issuer: issuer, Approved: approved}, nil
	}

	err = s.call(ctx, op, func(ctx context.Context) error {
		if approve {
			return s.ledger.ApproveIssuer(ctx, caller, issuer)
		}
		return s.ledger.RevokeIssuer(ctx, caller, issuer)
	})
	if err != nil {
		return nil, s.writeError(op, err)
	}

	s.view.InvalidateIssuer(ctx, issuer)
	s.emitAudit(ctx, audit.Event{Actor: caller, Action: action, Subject: issuer.String()})
	return &models.IssuerResult{Outcome: models.OutcomeApplied, Issuer: issuer, Approved: approve}, nil
}

// RequestCredential asks an approved issuer to issue a credential to caller.
func (s *Service) RequestCredential(ctx context.Context, caller, issuer domain.Address, data domain.Locator) (res *models.RequestResult, err error) {
	defer func() { s.observe(ctx, "request_credential", string(models.OutcomeApplied), err) }()
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing caller")
	}
	if issuer.IsZero() || data.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "issuer and request data locator are required")
	}

	id, err := s.view.Identity(ctx, caller)
	if err != nil {
		return nil, s.readError("read identity", err)
	}
	if !id.Registered {
		return nil, dErrors.New(dErrors.CodeNotRegistered, "register an identity before requesting credentials")
	}
	approved, err := s.view.IsApprovedIssuer(ctx, issuer)
	if err != nil {
		return nil, s.readError("read issuer", err)
	}
	if !approved {
		return nil, dErrors.New(dErrors.CodeNotFound, "issuer is not approved")
	}

	var ref ledger.RequestRef
	err = s.call(ctx, "request_credential", func(ctx context.Context) error {
		ref, err = s.ledger.RequestCredential(ctx, caller, issuer, data)
		return err
	})
	if err != nil {
		return nil, s.writeError("request credential", err)
	}

	req := ledger.CredentialRequest{
		Ref:         ref,
		Requester:   caller,
		DataLocator: data,
		RequestedAt: s.now().UTC(),
	}
	if err := s.view.RecordRequest(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "failed to record request snapshot", "request", ref.String(), "error", err)
	}
	s.view.InvalidateRequests(ctx, issuer)
	s.emitAudit(ctx, audit.Event{Actor: caller, Action: audit.ActionCredentialRequested, Subject: ref.String()})
	return &models.RequestResult{Outcome: models.OutcomeApplied, Request: &req}, nil
}

// ReviewRequest approves or rejects a pending request addressed to caller.
// Losing a race against another review of the same request is not an error:
// the result is OutcomeSuperseded and carries the request as reviewed.
func (s *Service) ReviewRequest(ctx context.Context, caller domain.Address, ref ledger.RequestRef, decision ledger.Decision, credentialData domain.Locator) (res *models.RequestResult, err error) {
	defer func() {
		outcome := ""
		if res != nil {
			outcome = string(res.Outcome)
		}
		s.observe(ctx, "review_request", outcome, err)
	}()

	if !decision.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
	}
	if decision == ledger.DecisionApprove && credentialData.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "approval requires a credential data locator")
	}
	if caller.IsZero() || caller != ref.Issuer {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the addressed issuer can review this request")
	}

	var approved bool
	err = s.call(ctx, "is_approved_issuer", func(ctx context.Context) error {
		approved, err = s.ledger.IsApprovedIssuer(ctx, caller)
		return err
	})
	if err != nil {
		return nil, s.readError("read issuer", err)
	}
	if !approved {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not an approved issuer")
	}

	var req *ledger.CredentialRequest
	err = s.call(ctx, "get_request", func(ctx context.Context) error {
		req, err = s.ledger.GetRequest(ctx, ref)
		return err
	})
	if err != nil {
		return nil, s.readError("read request", err)
	}
	if req.Reviewed {
		return nil, dErrors.New(dErrors.CodeAlreadyReviewed, "request already reviewed")
	}

	var cred *ledger.CredentialRef
	err = s.call(ctx, "review_request", func(ctx context.Context) error {
		if decision == ledger.DecisionReject {
			return s.ledger.RejectRequest(ctx, caller, ref)
		}
		c, err := s.ledger.ApproveRequest(ctx, caller, ref, credentialData)
		if err == nil {
			cred = &c
		}
		return err
	})
	switch {
	case errors.Is(err, ledger.ErrAlreadyReviewed):
		current := s.refreshRequest(ctx, ref, req)
		s.logger.InfoContext(ctx, "review superseded by concurrent review", "request", ref.String())
		return &models.RequestResult{Outcome: models.OutcomeSuperseded, Request: current, Credential: current.Credential}, nil
	case err != nil:
		return nil, s.writeError("review request", err)
	}

	current := s.refreshRequest(ctx, ref, req)
	if cred != nil {
		s.view.InvalidateCredentials(ctx, req.Requester)
	}
	s.emitAudit(ctx, audit.Event{
		Actor:    caller,
		Action:   audit.ActionRequestReviewed,
		Subject:  ref.String(),
		Decision: string(decision),
	})
	return &models.RequestResult{Outcome: models.OutcomeApplied, Request: current, Credential: cred}, nil
}

// refreshRequest re-reads a request after a review. The pre-review copy is
// returned when the re-read fails.
func (s *Service) refreshRequest(ctx context.Context, ref ledger.RequestRef, fallback *ledger.CredentialRequest) *ledger.CredentialRequest {
	var current *ledger.CredentialRequest
	err := s.call(ctx, "get_request", func(ctx context.Context) error {
		var err error
		current, err = s.view.RefreshRequest(ctx, ref)
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to refresh request after review", "request", ref.String(), "error", err)
		return fallback
	}
	return current
}

// IssueCredential issues a credential directly to a registered holder.
func (s *Service) IssueCredential(ctx context.Context, caller, holder domain.Address, data domain.Locator) (res *models.IssueResult, err error) {
	defer func() { s.observe(ctx, "issue_credential", string(models.OutcomeApplied), err) }()
	if holder.IsZero() || data.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "holder and credential data locator are required")
	}

	var approved bool
	err = s.call(ctx, "is_approved_issuer", func(ctx context.Context) error {
		approved, err = s.ledger.IsApprovedIssuer(ctx, caller)
		return err
	})
	if err != nil {
		return nil, s.readError("read issuer", err)
	}
	if !approved {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not an approved issuer")
	}
	id, err := s.view.Identity(ctx, holder)
	if err != nil {
		return nil, s.readError("read identity", err)
	}
	if !id.Registered {
		return nil, dErrors.New(dErrors.CodeNotRegistered, "holder is not registered")
	}

	var ref ledger.CredentialRef
	err = s.call(ctx, "issue_credential", func(ctx context.Context) error {
		ref, err = s.ledger.IssueCredential(ctx, caller, holder, data)
		return err
	})
	if err != nil {
		return nil, s.writeError("issue credential", err)
	}
	s.view.InvalidateCredentials(ctx, holder)
	s.emitAudit(ctx, audit.Event{Actor: caller, Action: audit.ActionCredentialIssued, Subject: ref.String()})
	return &models.IssueResult{Outcome: models.OutcomeApplied, Credential: ref}, nil
}

// RevokeCredential marks a credential revoked. The admin and the credential's
// issuer may revoke; revoking a revoked credential is a no-op.
func (s *Service) RevokeCredential(ctx context.Context, caller domain.Address, holder domain.Address, index uint64) (res *models.RevokeResult, err error) {
	defer func() {
		outcome := ""
		if res != nil {
			outcome = string(res.Outcome)
		}
		s.observe(ctx, "revoke_credential", outcome, err)
	}()

	ref := ledger.CredentialRef{Holder: holder, Index: index}
	var cred *ledger.Credential
	err = s.call(ctx, "get_credential", func(ctx context.Context) error {
		cred, err = s.ledger.GetCredential(ctx, ref)
		return err
	})
	if err != nil {
		return nil, s.readError("read credential", err)
	}

	admin, err := s.adminAddress(ctx)
	if err != nil {
		return nil, err
	}
	if caller != admin && caller != cred.Issuer {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the admin or the issuer can revoke this credential")
	}
	if cred.Revoked {
		return &models.RevokeResult{Outcome: models.OutcomeNoOp, Credential: ref}, nil
	}

	err = s.call(ctx, "revoke_credential", func(ctx context.Context) error {
		return s.ledger.RevokeCredential(ctx, caller, ref)
	})
	outcome := models.OutcomeApplied
	switch {
	case errors.Is(err, ledger.ErrAlreadyRevoked):
		outcome = models.OutcomeNoOp
	case err != nil:
		return nil, s.writeError("revoke credential", err)
	}

	s.view.InvalidateCredentials(ctx, holder)
	if outcome == models.OutcomeApplied {
		s.emitAudit(ctx, audit.Event{Actor: caller, Action: audit.ActionCredentialRevoked, Subject: ref.String()})
	}
	return &models.RevokeResult{Outcome: outcome, Credential: ref}, nil
}
