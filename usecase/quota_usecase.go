package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/logger"
)

type IQuotaUsecase interface {
	// CheckAndReserve consumes one unit of today's allowance. A rejected call returns the
	// decision together with ErrQuotaExceeded and leaves the counter untouched.
	CheckAndReserve(ctx context.Context, ownerID string, tier model.Tier) (*model.QuotaDecision, error)
	Usage(ctx context.Context, ownerID string, tier model.Tier) (*model.QuotaDecision, error)
}

type QuotaOption func(*quotaUsecase)

func WithQuotaClock(now func() time.Time) QuotaOption {
	return func(u *quotaUsecase) { u.now = now }
}

type quotaUsecase struct {
	store    repository.IQuota
	settings ISettingsUsecase
	defaults model.Settings
	now      func() time.Time
}

func NewQuotaUsecase(store repository.IQuota, settings ISettingsUsecase, defaults model.Settings, opts ...QuotaOption) IQuotaUsecase {
	u := &quotaUsecase{store: store, settings: settings, defaults: defaults, now: time.Now}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *quotaUsecase) CheckAndReserve(ctx context.Context, ownerID string, tier model.Tier) (*model.QuotaDecision, error) {
	today := model.UTCDate(u.now())
	limit := u.limit(ctx, tier)
	if limit <= 0 {
		return &model.QuotaDecision{Tier: tier, Limit: limit, ResetDate: today}, fmt.Errorf("%w: tier %s has no allowance", model.ErrQuotaExceeded, tier)
	}
	rec, ok, err := u.store.Reserve(ctx, ownerID, tier, today, limit)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("owner_id", ownerID).Error("Error while reserving quota")
		return nil, err
	}
	decision := &model.QuotaDecision{Allowed: ok, Tier: tier, Used: rec.UsedOn(today), Limit: limit, ResetDate: today}
	if !ok {
		return decision, fmt.Errorf("%w: %d of %d used today", model.ErrQuotaExceeded, decision.Used, limit)
	}
	return decision, nil
}

func (u *quotaUsecase) Usage(ctx context.Context, ownerID string, tier model.Tier) (*model.QuotaDecision, error) {
	today := model.UTCDate(u.now())
	limit := u.limit(ctx, tier)
	used := 0
	rec, err := u.store.Get(ctx, ownerID)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		used = rec.UsedOn(today)
	}
	return &model.QuotaDecision{Allowed: used < limit, Tier: tier, Used: used, Limit: limit, ResetDate: today}, nil
}

func (u *quotaUsecase) limit(ctx context.Context, tier model.Tier) int {
	s, err := u.settings.Get(ctx)
	if err != nil {
		logger.GetLogger().WithField("tier", tier).Warn("Falling back to default tier limits")
		return u.defaults.LimitFor(tier)
	}
	if v, ok := s.TierLimits[tier]; ok {
		return v
	}
	return u.defaults.LimitFor(tier)
}
