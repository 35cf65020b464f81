package memory

import (
	"context"
	"sync"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

type stateEntry struct {
	pending   model.PendingAuthorization
	expiresAt time.Time
}

// StateStore holds pending authorizations with a TTL. Consume is single use.
type StateStore struct {
	mu    sync.Mutex
	items map[string]stateEntry
	now   func() time.Time
}

var _ repository.IOAuthState = (*StateStore)(nil)

func NewStateStore() *StateStore {
	return &StateStore{items: map[string]stateEntry{}, now: time.Now}
}

func (s *StateStore) Save(_ context.Context, p *model.PendingAuthorization, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if !now.Before(e.expiresAt) {
			delete(s.items, k)
		}
	}
	s.items[p.State] = stateEntry{pending: *p, expiresAt: now.Add(ttl)}
	return nil
}

func (s *StateStore) Consume(_ context.Context, state string) (*model.PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[state]
	if !ok {
		return nil, model.ErrNotFound
	}
	delete(s.items, state)
	if !s.now().Before(e.expiresAt) {
		return nil, model.ErrNotFound
	}
	p := e.pending
	return &p, nil
}
