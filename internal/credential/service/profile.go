package service

import (
	"context"

	"dim/internal/credential/models"
	"dim/internal/ledger"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

// issuerDetailType labels issuer entries in holder profiles.
const issuerDetailType = "verified"

// Profile assembles everything the agent can disclose about holder. Only
// valid credentials are included. Unreadable metadata yields an anonymous
// name instead of failing the profile.
func (s *Service) Profile(ctx context.Context, holder domain.Address) (*models.HolderData, error) {
	id, err := s.view.Identity(ctx, holder)
	if err != nil {
		return nil, s.readError("read identity", err)
	}
	if !id.Registered {
		return nil, dErrors.New(dErrors.CodeNotRegistered, "holder is not registered")
	}

	all, err := s.view.Credentials(ctx, holder)
	if err != nil {
		return nil, s.readError("read credentials", err)
	}
	valid := make([]ledger.Credential, 0, len(all))
	for _, c := range all {
		if c.IsValid() {
			valid = append(valid, c)
		}
	}

	details, err := s.issuerDetails(ctx, valid)
	if err != nil {
		return nil, err
	}

	meta := s.metadata(ctx, id.MetadataLocator)
	data := &models.HolderData{
		Account:         holder,
		Registered:      true,
		Pending:         id.Pending,
		Name:            meta.Name,
		ProfileImage:    meta.ProfileImage,
		Credentials:     valid,
		CredentialCount: len(valid),
		IssuerDetails:   details,
	}
	if !id.RegisteredAt.IsZero() {
		at := id.RegisteredAt
		data.RegistrationDate = &at
	}
	return data, nil
}

func (s *Service) issuerDetails(ctx context.Context, creds []ledger.Credential) ([]models.IssuerDetail, error) {
	details := make([]models.IssuerDetail, 0, len(creds))
	seen := make(map[domain.Address]bool, len(creds))
	for _, c := range creds {
		if seen[c.Issuer] {
			continue
		}
		seen[c.Issuer] = true
		approved, err := s.view.IsApprovedIssuer(ctx, c.Issuer)
		if err != nil {
			return nil, s.readError("read issuer", err)
		}
		details = append(details, models.IssuerDetail{Issuer: c.Issuer, Type: issuerDetailType, Approved: approved})
	}
	return details, nil
}

func (s *Service) metadata(ctx context.Context, loc domain.Locator) models.Metadata {
	if s.blobs == nil || loc.IsZero() {
		return models.DecodeMetadata(nil)
	}
	raw, err := s.blobs.Get(ctx, loc)
	if err != nil {
		s.logger.WarnContext(ctx, "identity metadata unavailable", "locator", loc, "error", err)
		return models.DecodeMetadata(nil)
	}
	return models.DecodeMetadata(raw)
}
