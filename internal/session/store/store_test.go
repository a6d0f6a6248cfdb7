package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dim/internal/sentinel"
	"dim/internal/session/models"
	"dim/pkg/domain"
	"dim/pkg/testutil"
)

type sessionStore interface {
	PutChallenge(ctx context.Context, c *models.Challenge) error
	TakeChallenge(ctx context.Context, id domain.ChallengeID, now time.Time) (*models.Challenge, error)
	CreateSession(ctx context.Context, session *models.Session) error
	FindSession(ctx context.Context, id domain.SessionID) (*models.Session, error)
	FindByJTI(ctx context.Context, jti string) (*models.Session, error)
	ListByAccount(ctx context.Context, account domain.Address) ([]*models.Session, error)
	RevokeSession(ctx context.Context, id domain.SessionID, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// StoreSuite holds behaviour every session store shares.
type StoreSuite struct {
	suite.Suite
	newStore func() sessionStore
	store    sessionStore
	account  domain.Address
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() sessionStore { return NewInMemory() }})
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore()
	s.account = testutil.AddressN(9)
}

func (s *StoreSuite) newSession(jti string, createdAt time.Time) *models.Session {
	return &models.Session{
		ID:        domain.NewSessionID(),
		Account:   s.account,
		Challenge: "DIM-Auth-1-abc",
		JTI:       jti,
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
		ExpiresAt: createdAt.UTC().Truncate(time.Millisecond).Add(time.Hour),
	}
}

func (s *StoreSuite) TestChallengeIsSingleUse() {
	ctx := context.Background()
	now := time.Now()
	c := models.NewChallenge(s.account, "nonce", now, time.Minute)
	s.Require().NoError(s.store.PutChallenge(ctx, c))

	got, err := s.store.TakeChallenge(ctx, c.ID, now)
	s.Require().NoError(err)
	s.Equal(c.Value, got.Value)
	s.True(c.Account.Equal(got.Account))

	_, err = s.store.TakeChallenge(ctx, c.ID, now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestExpiredChallengeIsNotFound() {
	ctx := context.Background()
	now := time.Now()
	c := models.NewChallenge(s.account, "nonce", now, time.Minute)
	s.Require().NoError(s.store.PutChallenge(ctx, c))

	_, err := s.store.TakeChallenge(ctx, c.ID, now.Add(2*time.Minute))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestConcurrentTakeWinsOnce() {
	ctx := context.Background()
	now := time.Now()
	c := models.NewChallenge(s.account, "race", now, time.Minute)
	s.Require().NoError(s.store.PutChallenge(ctx, c))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.TakeChallenge(ctx, c.ID, now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

func (s *StoreSuite) TestCreateFindAndList() {
	ctx := context.Background()
	now := time.Now()
	older := s.newSession("jti-older", now.Add(-time.Minute))
	newer := s.newSession("jti-newer", now)
	s.Require().NoError(s.store.CreateSession(ctx, older))
	s.Require().NoError(s.store.CreateSession(ctx, newer))

	err := s.store.CreateSession(ctx, newer)
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.FindSession(ctx, newer.ID)
	s.Require().NoError(err)
	s.Equal(newer.JTI, got.JTI)

	byJTI, err := s.store.FindByJTI(ctx, "jti-older")
	s.Require().NoError(err)
	s.Equal(older.ID, byJTI.ID)

	_, err = s.store.FindByJTI(ctx, "unknown")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindSession(ctx, domain.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	list, err := s.store.ListByAccount(ctx, s.account)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)

	none, err := s.store.ListByAccount(ctx, testutil.AddressN(1))
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreSuite) TestRevokeOnce() {
	ctx := context.Background()
	now := time.Now()
	session := s.newSession("jti", now)
	s.Require().NoError(s.store.CreateSession(ctx, session))

	s.Require().NoError(s.store.RevokeSession(ctx, session.ID, now))
	s.ErrorIs(s.store.RevokeSession(ctx, session.ID, now), ErrSessionRevoked)
	s.ErrorIs(s.store.RevokeSession(ctx, domain.NewSessionID(), now), sentinel.ErrNotFound)

	got, err := s.store.FindByJTI(ctx, "jti")
	s.Require().NoError(err)
	s.Require().NotNil(got.RevokedAt)
	s.False(got.IsActive(now))
}

func TestInMemoryDeleteExpired(t *testing.T) {
	ctx := context.Background()
	st := NewInMemory()
	now := time.Now()
	account := testutil.AddressN(2)

	live := &models.Session{ID: domain.NewSessionID(), Account: account, JTI: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	dead := &models.Session{ID: domain.NewSessionID(), Account: account, JTI: "dead", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := st.CreateSession(ctx, live); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateSession(ctx, dead); err != nil {
		t.Fatal(err)
	}

	n, err := st.DeleteExpired(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("deleted %d sessions, want 1", n)
	}
	if _, err := st.FindByJTI(ctx, "dead"); err == nil {
		t.Fatal("expired session still indexed by jti")
	}
	if _, err := st.FindByJTI(ctx, "live"); err != nil {
		t.Fatalf("live session lost: %v", err)
	}
}
