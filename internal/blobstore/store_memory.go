package blobstore

import (
	"context"
	"slices"
	"sync"

	"dim/internal/sentinel"
	"dim/pkg/domain"
)

// InMemoryStore keeps blobs in process memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[domain.Locator][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[domain.Locator][]byte)}
}

func (s *InMemoryStore) Put(ctx context.Context, data []byte) (domain.Locator, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	loc := LocatorFor(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[loc]; !ok {
		s.blobs[loc] = slices.Clone(data)
	}
	return loc, nil
}

func (s *InMemoryStore) Get(ctx context.Context, locator domain.Locator) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[locator]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(data), nil
}

// Len returns the number of stored blobs.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
