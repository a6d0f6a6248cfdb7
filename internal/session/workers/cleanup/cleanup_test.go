package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/internal/session/models"
	"dim/internal/session/service"
	"dim/internal/session/store"
	"dim/internal/session/token"
	"dim/pkg/domain"
	"dim/pkg/testutil"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestRunOnce_RemovesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemory()
	now := time.Now()
	account := testutil.AddressN(3)

	require.NoError(t, st.CreateSession(ctx, &models.Session{
		ID: domain.NewSessionID(), Account: account, JTI: "old",
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, st.CreateSession(ctx, &models.Session{
		ID: domain.NewSessionID(), Account: account, JTI: "fresh",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	tokens := token.NewService("k", "dim-test", "relying-parties", time.Hour)
	svc, err := New(service.New(st, nil, tokens), WithInterval(time.Second))
	require.NoError(t, err)

	n, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.FindByJTI(ctx, "old")
	assert.Error(t, err)
	_, err = st.FindByJTI(ctx, "fresh")
	assert.NoError(t, err)
}

func TestRunOnce_WrapsError(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("boom")}
	svc, err := New(sweeper)
	require.NoError(t, err)

	_, err = svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "sweep expired sessions")
}

func TestStart_StopsOnCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	svc, err := New(sweeper, WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNew_RequiresSweeper(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
