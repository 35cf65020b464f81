package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

// ConnectionStore keeps every connection row, active or not. A single lock makes
// replace-then-insert atomic for each (owner, platform).
type ConnectionStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []*model.OAuthConnection
}

var _ repository.IOAuthConnection = (*ConnectionStore)(nil)

func NewConnectionStore() *ConnectionStore { return &ConnectionStore{} }

func (s *ConnectionStore) ReplaceActive(_ context.Context, c *model.OAuthConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, row := range s.rows {
		if row.IsActive && row.OwnerID == c.OwnerID && row.Platform == c.Platform {
			deactivate(row, "replaced", now)
		}
	}
	s.nextID++
	c.ID = s.nextID
	c.IsActive = true
	c.DeactivatedAt = nil
	c.DeactivationReason = ""
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *ConnectionStore) GetActive(_ context.Context, ownerID, platform string) (*model.OAuthConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.IsActive && row.OwnerID == ownerID && row.Platform == platform {
			cp := *row
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *ConnectionStore) ListActive(_ context.Context, ownerID string) ([]*model.OAuthConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.OAuthConnection
	for _, row := range s.rows {
		if row.IsActive && row.OwnerID == ownerID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *ConnectionStore) UpdateTokens(_ context.Context, id int64, accessRef, secondaryRef string, expiresAt *time.Time, validatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id && row.IsActive {
			row.AccessTokenRef = accessRef
			row.SecondaryTokenRef = secondaryRef
			row.ExpiresAt = expiresAt
			v := validatedAt
			row.LastValidatedAt = &v
			row.UpdatedAt = validatedAt
			return nil
		}
	}
	return model.ErrNotFound
}

func (s *ConnectionStore) Deactivate(_ context.Context, ownerID, platform, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, row := range s.rows {
		if row.IsActive && row.OwnerID == ownerID && row.Platform == platform {
			deactivate(row, reason, at)
			changed = true
		}
	}
	return changed, nil
}

func (s *ConnectionStore) DeactivateByID(_ context.Context, id int64, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id && row.IsActive {
			deactivate(row, reason, at)
			return true, nil
		}
	}
	return false, nil
}

// History returns all rows for an owner and platform, oldest first.
func (s *ConnectionStore) History(ownerID, platform string) []model.OAuthConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.OAuthConnection
	for _, row := range s.rows {
		if row.OwnerID == ownerID && row.Platform == platform {
			out = append(out, *row)
		}
	}
	return out
}

func deactivate(row *model.OAuthConnection, reason string, at time.Time) {
	t := at
	row.IsActive = false
	row.DeactivatedAt = &t
	row.DeactivationReason = reason
	row.UpdatedAt = at
}
