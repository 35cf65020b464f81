package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

const runtimeSettingsKey = "runtime"

type SettingsRepository struct{ db *sql.DB }

var _ repository.ISettings = (*SettingsRepository)(nil)

func NewSettingsRepository(db *sql.DB) *SettingsRepository { return &SettingsRepository{db: db} }

func (r *SettingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key=$1`, runtimeSettingsKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	s := &model.Settings{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}
