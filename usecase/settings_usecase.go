package usecase

import (
	"context"
	"fmt"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/logger"
)

type ISettingsUsecase interface {
	Get(ctx context.Context) (*model.Settings, error)
}

type settingsUsecase struct {
	store repository.ISettings
}

func NewSettingsUsecase(store repository.ISettings) ISettingsUsecase {
	return &settingsUsecase{store: store}
}

// Get never returns partial settings. Any store failure, including a missing row, is ErrSettingsUnavailable.
func (u *settingsUsecase) Get(ctx context.Context) (*model.Settings, error) {
	s, err := u.store.Get(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Runtime settings unavailable")
		return nil, fmt.Errorf("%w: %w", model.ErrSettingsUnavailable, err)
	}
	return s, nil
}
