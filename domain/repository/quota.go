package repository

import (
	"context"
	"time"

	"newsroom/domain/model"
)

type IQuota interface {
	// Reserve atomically applies the day rollover for today and increments daily_used if the
	// result stays within limit. It returns the record after the call and whether it was reserved.
	Reserve(ctx context.Context, ownerID string, tier model.Tier, today time.Time, limit int) (*model.QuotaRecord, bool, error)
	Get(ctx context.Context, ownerID string) (*model.QuotaRecord, error)
}

type ISettings interface {
	Get(ctx context.Context) (*model.Settings, error)
}
