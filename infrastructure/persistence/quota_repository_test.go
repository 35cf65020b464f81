package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"newsroom/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quotaColumns = []string{"owner_id", "tier", "daily_used", "reset_date", "updated_at"}

func TestQuotaRepository_ReserveAllowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)
	today := model.UTCDate(now)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO quota_records (owner_id, tier, daily_used, reset_date, updated_at)`)).
		WithArgs("u1", "free", today, 20, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(quotaColumns).AddRow("u1", "free", 1, today, now))

	rec, ok, err := NewQuotaRepository(db).Reserve(context.Background(), "u1", model.TierFree, now, 20)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, rec.DailyUsed)
	assert.Equal(t, today, rec.ResetDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaRepository_ReserveRejectedReturnsCurrent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)
	today := model.UTCDate(now)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO quota_records`)).
		WithArgs("u1", "guest", today, 3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(quotaColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT owner_id, tier, daily_used, reset_date, updated_at FROM quota_records WHERE owner_id=$1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(quotaColumns).AddRow("u1", "guest", 3, today, now))

	rec, ok, err := NewQuotaRepository(db).Reserve(context.Background(), "u1", model.TierGuest, now, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, rec.DailyUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSettingsRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM app_settings WHERE key=$1`)).
		WithArgs("runtime").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"tier_limits":{"free":7},"default_ai_provider":"anthropic"}`)))

	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, s.LimitFor(model.TierFree))
	assert.Equal(t, 200, s.LimitFor(model.TierPaid))
	assert.Equal(t, "anthropic", s.DefaultAIProvider)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM app_settings WHERE key=$1`)).
		WithArgs("runtime").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	_, err = repo.Get(context.Background())
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
