package memory

import (
	"context"
	"sync"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

// QuotaStore performs rollover and increment under one lock, matching the
// single-statement upsert used by the Postgres store.
type QuotaStore struct {
	mu      sync.Mutex
	records map[string]model.QuotaRecord
}

var _ repository.IQuota = (*QuotaStore)(nil)

func NewQuotaStore() *QuotaStore {
	return &QuotaStore{records: map[string]model.QuotaRecord{}}
}

func (s *QuotaStore) Reserve(_ context.Context, ownerID string, tier model.Tier, today time.Time, limit int) (*model.QuotaRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := model.UTCDate(today)
	rec, ok := s.records[ownerID]
	if !ok {
		rec = model.QuotaRecord{OwnerID: ownerID, Tier: tier, ResetDate: day}
	}
	used := rec.UsedOn(day)
	if used >= limit {
		cp := rec
		return &cp, false, nil
	}
	rec.Tier = tier
	rec.DailyUsed = used + 1
	if rec.ResetDate.Before(day) {
		rec.ResetDate = day
	}
	rec.UpdatedAt = time.Now().UTC()
	s.records[ownerID] = rec
	cp := rec
	return &cp, true, nil
}

func (s *QuotaStore) Get(_ context.Context, ownerID string) (*model.QuotaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[ownerID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &rec, nil
}

// Seed sets a record directly. Used to restore state and in tests.
func (s *QuotaStore) Seed(rec model.QuotaRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ResetDate = model.UTCDate(rec.ResetDate)
	s.records[rec.OwnerID] = rec
}
