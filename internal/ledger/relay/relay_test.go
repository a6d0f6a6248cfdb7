package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/internal/ledger"
	"dim/internal/ledger/memledger"
	"dim/pkg/testutil"
)

type capturePublisher struct {
	mu       sync.Mutex
	failures int
	seen     []ledger.Envelope
}

func (c *capturePublisher) Publish(_ context.Context, _ ledger.Envelope, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("broker unavailable")
	}
	env, err := ledger.DecodeEvent(raw)
	if err != nil {
		return err
	}
	c.seen = append(c.seen, env)
	return nil
}

func (c *capturePublisher) events() []ledger.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ledger.Envelope(nil), c.seen...)
}

func TestRelayForwardsInOrderAndRetries(t *testing.T) {
	actors := testutil.NewActors()
	l := memledger.New(actors.Admin.Address())
	ctx := context.Background()
	require.NoError(t, l.RegisterIdentity(ctx, actors.Holder.Address(), "ipfs://zholder"))
	require.NoError(t, l.ApproveIssuer(ctx, actors.Admin.Address(), actors.Issuer.Address()))

	flaky := &capturePublisher{failures: 2}
	steady := &capturePublisher{}
	r := New(l, nil, steady, flaky)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- r.Run(runCtx, 0) }()

	require.Eventually(t, func() bool { return len(flaky.events()) == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	got := flaky.events()
	assert.Equal(t, uint64(1), got[0].Sequence)
	assert.Equal(t, ledger.KindIdentityRegistered, got[0].Event.Kind())
	assert.Equal(t, ledger.KindIssuerApproved, got[1].Event.Kind())
	// steady publishes first, so it is re-sent the first event on every failed attempt
	assert.Len(t, steady.events(), 4)
}
