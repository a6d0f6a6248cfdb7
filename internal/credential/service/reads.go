package service

import (
	"context"

	"dim/internal/ledger"
	"dim/pkg/domain"
)

func (s *Service) Admin(ctx context.Context) (domain.Address, error) {
	return s.adminAddress(ctx)
}

func (s *Service) Identity(ctx context.Context, addr domain.Address) (*ledger.Identity, error) {
	id, err := s.view.Identity(ctx, addr)
	if err != nil {
		return nil, s.readError("read identity", err)
	}
	return id, nil
}

func (s *Service) IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error) {
	ok, err := s.view.IsApprovedIssuer(ctx, addr)
	if err != nil {
		return false, s.readError("read issuer", err)
	}
	return ok, nil
}

// Credentials returns every credential of holder, revoked ones included.
func (s *Service) Credentials(ctx context.Context, holder domain.Address) ([]ledger.Credential, error) {
	creds, err := s.view.Credentials(ctx, holder)
	if err != nil {
		return nil, s.readError("read credentials", err)
	}
	return creds, nil
}

// Requests returns the requests addressed to issuer.
func (s *Service) Requests(ctx context.Context, issuer domain.Address) ([]ledger.CredentialRequest, error) {
	reqs, err := s.view.Requests(ctx, issuer)
	if err != nil {
		return nil, s.readError("read requests", err)
	}
	return reqs, nil
}

// HolderRequests returns the requests holder made, as last seen locally.
func (s *Service) HolderRequests(ctx context.Context, holder domain.Address) ([]ledger.CredentialRequest, error) {
	reqs, err := s.view.HolderRequests(ctx, holder)
	if err != nil {
		return nil, s.readError("read request snapshots", err)
	}
	return reqs, nil
}
