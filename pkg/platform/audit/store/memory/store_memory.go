package memory

import (
	"context"
	"sync"

	id "talentgate/pkg/domain"
	audit "talentgate/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.CandidacyID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.CandidacyID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.CandidacyID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.CandidacyID] = append(s.events[event.CandidacyID], event)
	return nil
}

func (s *InMemoryStore) ListByCandidacy(_ context.Context, candidacyID id.CandidacyID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[candidacyID]...), nil
}
