package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dim/internal/category"
	consentmodels "dim/internal/consent/models"
	credentialmodels "dim/internal/credential/models"
	"dim/internal/disclosure/service/mocks"
	"dim/internal/sentinel"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/testutil"
)

func TestDisclose_ConsentStoreOutage(t *testing.T) {
	ctrl := gomock.NewController(t)
	consent := mocks.NewMockConsentReader(ctrl)
	holder := testutil.NewActors().Holder

	consent.EXPECT().Lookup(gomock.Any(), holder.Address(), "bank.example").
		Return(nil, false, dErrors.New(dErrors.CodeStoreUnavailable, "consent store unavailable"))

	svc := New(consent, mocks.NewMockProfileSource(ctrl), holder)
	_, err := svc.Disclose(context.Background(), holder.Address(), "bank.example", []category.ID{category.BasicIdentity})
	require.Error(t, err)
	assert.True(t, dErrors.IsTransient(err))
}

func TestDisclose_ProfileErrorPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	consent := mocks.NewMockConsentReader(ctrl)
	profiles := mocks.NewMockProfileSource(ctrl)
	holder := testutil.NewActors().Holder
	rec := grantedRecord(t, holder.Address(), category.BasicIdentity)

	consent.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).Return(rec, true, nil)
	profiles.EXPECT().Profile(gomock.Any(), holder.Address()).
		Return(nil, dErrors.New(dErrors.CodeNotRegistered, "holder is not registered"))

	svc := New(consent, profiles, holder)
	_, err := svc.Disclose(context.Background(), holder.Address(), "bank.example", []category.ID{category.BasicIdentity})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotRegistered))
}

func TestDisclose_CacheFailuresAreNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	consent := mocks.NewMockConsentReader(ctrl)
	profiles := mocks.NewMockProfileSource(ctrl)
	proofs := mocks.NewMockProofCache(ctrl)
	auditor := mocks.NewMockAuditPublisher(ctrl)
	holder := testutil.NewActors().Holder
	rec := grantedRecord(t, holder.Address(), category.BasicIdentity)

	consent.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).Return(rec, true, nil)
	proofs.EXPECT().Get(gomock.Any(), holder.Address(), "bank.example").Return(nil, sentinel.ErrUnavailable)
	profiles.EXPECT().Profile(gomock.Any(), holder.Address()).
		Return(&credentialmodels.HolderData{Account: holder.Address(), Registered: true, Name: "Ada"}, nil)
	proofs.EXPECT().Set(gomock.Any(), holder.Address(), "bank.example", gomock.Any(), 5*time.Minute).
		Return(errors.New("redis down"))
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	svc := New(consent, profiles, holder,
		WithProofCache(proofs),
		WithAuditor(auditor),
		WithReplayWindow(10*time.Minute, time.Second),
	)
	out, err := svc.Disclose(context.Background(), holder.Address(), "bank.example", []category.ID{category.BasicIdentity})
	require.NoError(t, err)
	require.NotNil(t, out.Proof)
	assert.Equal(t, "Ada", out.Proof.Data["name"])
}

func grantedRecord(t *testing.T, holder domain.Address, ids ...category.ID) *consentmodels.Record {
	t.Helper()
	scope, err := consentmodels.NewScope(holder, "bank.example")
	require.NoError(t, err)
	rec, err := consentmodels.NewRecord(scope, ids, time.Now(), "0xsig")
	require.NoError(t, err)
	return rec
}
