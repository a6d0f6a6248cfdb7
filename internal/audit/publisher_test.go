package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

var actor = domain.MustAddress("0x4000000000000000000000000000000000000001")

// gatedStore blocks every Append until release is closed, and can fail
// appends for one action.
type gatedStore struct {
	*InMemoryStore
	release chan struct{}
	failFor Action

	mu      sync.Mutex
	started int
}

func newGatedStore() *gatedStore {
	return &gatedStore{InMemoryStore: NewInMemoryStore(), release: make(chan struct{})}
}

func (g *gatedStore) Append(ctx context.Context, event Event) error {
	g.mu.Lock()
	g.started++
	g.mu.Unlock()
	<-g.release
	if event.Action == g.failFor {
		return errors.New("append refused")
	}
	return g.InMemoryStore.Append(ctx, event)
}

func (g *gatedStore) appendsStarted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

func TestPublisher_SyncEmitStampsTimestamp(t *testing.T) {
	at := time.Date(2026, 5, 1, 11, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	p := NewPublisher(NewInMemoryStore(), WithPublisherClock(func() time.Time { return at }))

	require.NoError(t, p.Emit(context.Background(), Event{Actor: actor, Action: ActionConsentGranted, Domain: "bank.example"}))

	events, err := p.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionConsentGranted, events[0].Action)
	assert.True(t, at.Equal(events[0].Timestamp))
	assert.Equal(t, time.UTC, events[0].Timestamp.Location())
}

func TestPublisher_RejectsUnknownAction(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)

	err := p.Emit(context.Background(), Event{Actor: actor, Action: "consent_granted_twice"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPublisher_AsyncDrainsOnCloseInOrder(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, WithAsyncBuffer(16))

	actions := []Action{ActionIdentityRegistered, ActionCredentialRequested, ActionCredentialIssued, ActionConsentGranted, ActionDisclosureIssued}
	for _, a := range actions {
		require.NoError(t, p.Emit(context.Background(), Event{Actor: actor, Action: a, Timestamp: time.Unix(1, 0)}))
	}
	p.Close()

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, len(actions))
	for i, a := range actions {
		assert.Equal(t, a, events[i].Action)
	}
}

func TestPublisher_FullBufferDropsWithoutFailingCaller(t *testing.T) {
	store := newGatedStore()
	p := NewPublisher(store, WithAsyncBuffer(1))

	// The worker takes the first event and blocks in Append; the second fills the queue.
	require.NoError(t, p.Emit(context.Background(), Event{Actor: actor, Action: ActionSessionCreated}))
	require.Eventually(t, func() bool { return store.appendsStarted() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, p.Emit(context.Background(), Event{Actor: actor, Action: ActionConsentGranted}))
	require.NoError(t, p.Emit(context.Background(), Event{Actor: actor, Action: ActionConsentRevoked}), "a dropped event is not the caller's failure")

	close(store.release)
	p.Close()

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionSessionCreated, events[0].Action)
	assert.Equal(t, ActionConsentGranted, events[1].Action)
}

func TestPublisher_WorkerSurvivesStoreFailure(t *testing.T) {
	store := newGatedStore()
	store.failFor = ActionAuthFailed
	close(store.release)
	p := NewPublisher(store, WithAsyncBuffer(4), WithPersistTimeout(time.Second))

	require.NoError(t, p.Emit(context.Background(), Event{Actor: actor, Action: ActionAuthFailed}))
	require.NoError(t, p.Emit(context.Background(), Event{Actor: actor, Action: ActionSessionCreated}))
	p.Close()

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionSessionCreated, events[0].Action)
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	for name, opts := range map[string][]PublisherOption{
		"sync":  nil,
		"async": {WithAsyncBuffer(4)},
	} {
		t.Run(name, func(t *testing.T) {
			p := NewPublisher(NewInMemoryStore(), opts...)
			p.Close()
			p.Close()
			assert.ErrorIs(t, p.Emit(context.Background(), Event{Actor: actor, Action: ActionSessionCreated}), ErrClosed)
		})
	}
}

func TestInMemoryStore_ListIsolatesActors(t *testing.T) {
	store := NewInMemoryStore()
	other := domain.MustAddress("0x5000000000000000000000000000000000000001")
	require.NoError(t, store.Append(context.Background(), Event{Actor: actor, Action: ActionIssuerApproved}))

	events, err := store.ListByActor(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, events)
}
