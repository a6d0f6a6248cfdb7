package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"dim/internal/sentinel"
	"dim/internal/session/models"
	"dim/pkg/domain"
)

// InMemoryStore keeps challenges and sessions in process memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	challenges map[domain.ChallengeID]*models.Challenge
	sessions   map[domain.SessionID]*models.Session
	byJTI      map[string]domain.SessionID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		challenges: make(map[domain.ChallengeID]*models.Challenge),
		sessions:   make(map[domain.SessionID]*models.Session),
		byJTI:      make(map[string]domain.SessionID),
	}
}

func (s *InMemoryStore) PutChallenge(_ context.Context, c *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.challenges[c.ID] = &cp
	return nil
}

// TakeChallenge removes and returns the challenge. A challenge can be taken
// once.
func (s *InMemoryStore) TakeChallenge(_ context.Context, id domain.ChallengeID, now time.Time) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
	}
	delete(s.challenges, id)
	if c.Expired(now) {
		return nil, fmt.Errorf("challenge expired: %w", sentinel.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryStore) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session exists: %w", sentinel.ErrConflict)
	}
	s.sessions[session.ID] = session.Clone()
	if session.JTI != "" {
		s.byJTI[session.JTI] = session.ID
	}
	return nil
}

func (s *InMemoryStore) FindSession(_ context.Context, id domain.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[id]; ok {
		return session.Clone(), nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByJTI(_ context.Context, jti string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byJTI[jti]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return s.sessions[id].Clone(), nil
}

// ListByAccount returns the account's sessions, newest first.
func (s *InMemoryStore) ListByAccount(_ context.Context, account domain.Address) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Session, 0)
	for _, session := range s.sessions {
		if session.Account.Equal(account) {
			out = append(out, session.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) RevokeSession(_ context.Context, id domain.SessionID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if !session.Revoke(now) {
		return ErrSessionRevoked
	}
	return nil
}

// DeleteExpired drops expired sessions and challenges as of now.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			delete(s.byJTI, session.JTI)
			deleted++
		}
	}
	for id, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, id)
		}
	}
	return deleted, nil
}

func sortNewestFirst(sessions []*models.Session) {
	slices.SortFunc(sessions, func(a, b *models.Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
