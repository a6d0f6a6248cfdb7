package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dim/internal/blobstore"
	"dim/internal/category"
	"dim/internal/consent/service/mocks"
	"dim/internal/platform/remote"
	"dim/internal/sentinel"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/platform/circuit"
	"dim/pkg/testutil"
)

// signedBasicIdentity returns a fresh holder grant of basic_identity to d.
func signedBasicIdentity(t *testing.T, d string) (domain.Address, []category.ID, time.Time, string) {
	t.Helper()
	holder := testutil.NewActors().Holder
	ids := []category.ID{category.BasicIdentity}
	at := time.Now().UTC().Truncate(time.Millisecond)
	return holder.Address(), ids, at, signGrant(t, holder, d, ids, at)
}

func fastRetry() remote.RetryPolicy {
	return remote.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestGrant_StoreOutage(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)
	proofs := mocks.NewMockProofInvalidator(ctrl)

	st.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, errors.Join(sentinel.ErrUnavailable, errors.New("connection refused")))

	svc := New(st, blobs, WithProofInvalidator(proofs))
	holder, ids, at, sig := signedBasicIdentity(t, "bank.example")
	_, err := svc.Grant(context.Background(), holder, "bank.example", ids, at, sig)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
	assert.True(t, dErrors.IsTransient(err))
}

func TestGrant_PutFailureIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)

	st.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	st.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(1)

	svc := New(st, blobs)
	holder, ids, at, sig := signedBasicIdentity(t, "bank.example")
	_, err := svc.Grant(context.Background(), holder, "bank.example", ids, at, sig)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestGrant_MirrorBreaker(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)

	st.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound).AnyTimes()
	st.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	st.EXPECT().MarkMirrored(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	now := time.Now()
	breaker := circuit.New("test-mirror",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	svc := New(st, blobs, WithMirrorRetry(fastRetry()), WithMirrorBreaker(breaker))

	// Closed: one initial attempt plus two retries.
	blobs.EXPECT().Put(gomock.Any(), gomock.Any()).Return(domain.Locator(""), sentinel.ErrUnavailable).Times(3)
	holder, ids, at, sig := signedBasicIdentity(t, "bank.example")
	res, err := svc.Grant(context.Background(), holder, "bank.example", ids, at, sig)
	require.NoError(t, err)
	require.Error(t, res.Warning)
	assert.True(t, breaker.IsOpen())

	// Open: the blob store is not called and the record stays pending.
	holder, ids, at, sig = signedBasicIdentity(t, "shop.example")
	res, err = svc.Grant(context.Background(), holder, "shop.example", ids, at, sig)
	require.NoError(t, err)
	assert.True(t, dErrors.HasCode(res.Warning, dErrors.CodeStoreUnavailable))
	assert.ErrorIs(t, res.Warning, circuit.ErrOpen)
	assert.Nil(t, res.Record.MirroredAt)

	// Cooldown over: one trial write goes through and closes the breaker.
	now = now.Add(time.Minute)
	blobs.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, doc []byte) (domain.Locator, error) {
		return blobstore.LocatorFor(doc), nil
	}).Times(1)
	holder, ids, at, sig = signedBasicIdentity(t, "travel.example")
	res, err = svc.Grant(context.Background(), holder, "travel.example", ids, at, sig)
	require.NoError(t, err)
	require.NoError(t, res.Warning)
	assert.NotNil(t, res.Record.MirroredAt)
	assert.Equal(t, circuit.StateClosed, breaker.State())
}

func TestGrant_MirrorRejectsForeignLocator(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)

	st.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	st.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
	blobs.EXPECT().Put(gomock.Any(), gomock.Any()).Return(domain.Locator("ipfs://elsewhere"), nil)

	svc := New(st, blobs, WithMirrorRetry(fastRetry()))
	holder, ids, at, sig := signedBasicIdentity(t, "bank.example")
	res, err := svc.Grant(context.Background(), holder, "bank.example", ids, at, sig)
	require.NoError(t, err)
	require.Error(t, res.Warning)
	assert.Nil(t, res.Record.MirroredAt)
}

func TestLookup_StoreOutage(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)

	st.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrUnavailable)

	svc := New(st, mocks.NewMockBlobStore(ctrl))
	_, _, err := svc.Lookup(context.Background(), testutil.AddressN(1), "bank.example")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}
