package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

type QuotaRepository struct{ db *sql.DB }

var _ repository.IQuota = (*QuotaRepository)(nil)

func NewQuotaRepository(db *sql.DB) *QuotaRepository { return &QuotaRepository{db: db} }

// reserveQuery performs rollover, limit check and increment as one row-locked upsert.
// Concurrent callers serialize on the row; each re-evaluates the WHERE against the committed row.
const reserveQuery = `INSERT INTO quota_records (owner_id, tier, daily_used, reset_date, updated_at)
	VALUES ($1, $2, 1, $3, $5)
	ON CONFLICT (owner_id) DO UPDATE SET
		daily_used = CASE WHEN quota_records.reset_date < EXCLUDED.reset_date THEN 1 ELSE quota_records.daily_used + 1 END,
		reset_date = GREATEST(quota_records.reset_date, EXCLUDED.reset_date),
		tier = EXCLUDED.tier,
		updated_at = EXCLUDED.updated_at
	WHERE (CASE WHEN quota_records.reset_date < EXCLUDED.reset_date THEN 0 ELSE quota_records.daily_used END) < $4
	RETURNING owner_id, tier, daily_used, reset_date, updated_at`

func (r *QuotaRepository) Reserve(ctx context.Context, ownerID string, tier model.Tier, today time.Time, limit int) (*model.QuotaRecord, bool, error) {
	day := model.UTCDate(today)
	row := r.db.QueryRowContext(ctx, reserveQuery, ownerID, string(tier), day, limit, time.Now().UTC())
	rec, err := scanQuota(row)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, err
	}
	current, err := r.Get(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *QuotaRepository) Get(ctx context.Context, ownerID string) (*model.QuotaRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT owner_id, tier, daily_used, reset_date, updated_at FROM quota_records WHERE owner_id=$1`, ownerID)
	return scanQuota(row)
}

func scanQuota(row *sql.Row) (*model.QuotaRecord, error) {
	rec := &model.QuotaRecord{}
	var tier string
	if err := row.Scan(&rec.OwnerID, &tier, &rec.DailyUsed, &rec.ResetDate, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	rec.Tier = model.Tier(tier)
	rec.ResetDate = model.UTCDate(rec.ResetDate)
	return rec, nil
}
