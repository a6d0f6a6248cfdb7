package audit

import (
	"context"
	"sync"

	"dim/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.Address][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.Address][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Actor] = append(s.events[event.Actor], event)
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor domain.Address) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[actor]...), nil
}
