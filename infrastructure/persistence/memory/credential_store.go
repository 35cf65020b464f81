package memory

import (
	"context"
	"sync"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	"github.com/google/uuid"
)

type CredentialStore struct {
	mu    sync.RWMutex
	items map[string]model.Credential
	order []string
}

var _ repository.ICredential = (*CredentialStore)(nil)

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{items: map[string]model.Credential{}}
}

func (s *CredentialStore) Insert(_ context.Context, c *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	cp.Ciphertext = append([]byte(nil), c.Ciphertext...)
	if _, exists := s.items[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.items[c.ID] = cp
	return nil
}

func (s *CredentialStore) Get(_ context.Context, id string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyCredential(c), nil
}

func (s *CredentialStore) FindLatest(_ context.Context, ownerID string, purpose model.CredentialPurpose, platformOrProvider string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *model.Credential
	var bestAt time.Time
	for _, id := range s.order {
		c := s.items[id]
		if c.OwnerID != ownerID || c.Purpose != purpose {
			continue
		}
		if platformOrProvider != "" && c.PlatformOrProvider != platformOrProvider {
			continue
		}
		at := c.CreatedAt
		if c.RotatedAt != nil {
			at = *c.RotatedAt
		}
		// later insertions win ties
		if best == nil || !at.Before(bestAt) {
			best, bestAt = copyCredential(c), at
		}
	}
	if best == nil {
		return nil, model.ErrNotFound
	}
	return best, nil
}

func (s *CredentialStore) Rotate(_ context.Context, id string, ciphertext []byte, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	if !ok {
		return model.ErrNotFound
	}
	c.Ciphertext = append([]byte(nil), ciphertext...)
	t := at
	c.RotatedAt = &t
	s.items[id] = c
	return nil
}

func copyCredential(c model.Credential) *model.Credential {
	c.Ciphertext = append([]byte(nil), c.Ciphertext...)
	return &c
}

type SetupStore struct {
	mu    sync.RWMutex
	items map[string]model.AppCredentialSetup
}

var _ repository.IAppCredentialSetup = (*SetupStore)(nil)

func NewSetupStore() *SetupStore {
	return &SetupStore{items: map[string]model.AppCredentialSetup{}}
}

func ownerKey(ownerID, platform string) string { return ownerID + "\x00" + platform }

func (s *SetupStore) Upsert(_ context.Context, in *model.AppCredentialSetup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	key := ownerKey(in.OwnerID, in.Platform)
	if prev, ok := s.items[key]; ok {
		in.CreatedAt = prev.CreatedAt
	} else if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	s.items[key] = *in
	return nil
}

func (s *SetupStore) Get(_ context.Context, ownerID, platform string) (*model.AppCredentialSetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[ownerKey(ownerID, platform)]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &v, nil
}

func (s *SetupStore) Delete(_ context.Context, ownerID, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey(ownerID, platform)
	if _, ok := s.items[key]; !ok {
		return model.ErrNotFound
	}
	delete(s.items, key)
	return nil
}
