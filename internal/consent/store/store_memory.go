package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"dim/internal/consent/models"
	"dim/internal/sentinel"
	"dim/pkg/domain"
)

// Error contract shared by the consent stores:
//   - Find returns sentinel.ErrNotFound when no record exists for the scope
//   - Delete reports whether a record was removed; a missing record is not an error
//   - MarkMirrored only touches a record whose locator still matches

// InMemoryStore keeps consent records in a single map keyed by scope.
// Put swaps the whole record, so readers never see a partial grant.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[models.Scope]*models.Record
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.Scope]*models.Record)}
}

func (s *InMemoryStore) Find(_ context.Context, scope models.Scope) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[scope]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

// ListByHolder returns the holder's records ordered by domain.
func (s *InMemoryStore) ListByHolder(_ context.Context, holder domain.Address) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for scope, rec := range s.records {
		if scope.Holder == holder {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

// Put replaces any record for the same scope.
func (s *InMemoryStore) Put(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Scope()] = rec.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, scope models.Scope) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[scope]; !ok {
		return false, nil
	}
	delete(s.records, scope)
	return true, nil
}

func (s *InMemoryStore) MarkMirrored(_ context.Context, scope models.Scope, locator domain.Locator, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[scope]
	if !ok || rec.Locator != locator {
		return sentinel.ErrNotFound
	}
	updated := rec.Clone()
	t := at.UTC()
	updated.MirroredAt = &t
	s.records[scope] = updated
	return nil
}
