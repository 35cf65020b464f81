package memory

import (
	"context"
	"sync"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

type AttemptStore struct {
	mu     sync.RWMutex
	nextID int64
	items  []model.PublishAttempt
}

var _ repository.IPublishAttempt = (*AttemptStore)(nil)

func NewAttemptStore() *AttemptStore { return &AttemptStore{} }

func (s *AttemptStore) Insert(_ context.Context, a *model.PublishAttempt) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.items = append(s.items, *a)
	return nil
}

func (s *AttemptStore) ListByPost(_ context.Context, ownerID, postID string) ([]*model.PublishAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.PublishAttempt
	for i := range s.items {
		if s.items[i].OwnerID == ownerID && s.items[i].PostID == postID {
			cp := s.items[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
