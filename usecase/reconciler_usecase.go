package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

// IReconcilerUsecase derives the one health state every other surface reads.
type IReconcilerUsecase interface {
	Health(ctx context.Context, ownerID, platform string) (*model.ConnectionHealth, error)
	HealthAll(ctx context.Context, ownerID string) ([]*model.ConnectionHealth, error)
	// Resolve returns the health together with the active connection it was derived from, if any.
	Resolve(ctx context.Context, ownerID, platform string) (*model.ConnectionHealth, *model.OAuthConnection, error)
	Platforms() []string
}

type reconcilerUsecase struct {
	setups repository.IAppCredentialSetup
	conns  repository.IOAuthConnection
	flows  map[string]repository.IOAuthFlow
	now    func() time.Time
}

func NewReconcilerUsecase(setups repository.IAppCredentialSetup, conns repository.IOAuthConnection, flows map[string]repository.IOAuthFlow) IReconcilerUsecase {
	return &reconcilerUsecase{setups: setups, conns: conns, flows: flows, now: time.Now}
}

func (u *reconcilerUsecase) Platforms() []string {
	names := make([]string, 0, len(u.flows))
	for name := range u.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (u *reconcilerUsecase) Health(ctx context.Context, ownerID, platform string) (*model.ConnectionHealth, error) {
	h, _, err := u.Resolve(ctx, ownerID, platform)
	return h, err
}

func (u *reconcilerUsecase) HealthAll(ctx context.Context, ownerID string) ([]*model.ConnectionHealth, error) {
	out := make([]*model.ConnectionHealth, 0, len(u.flows))
	for _, name := range u.Platforms() {
		h, err := u.Health(ctx, ownerID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (u *reconcilerUsecase) Resolve(ctx context.Context, ownerID, platform string) (*model.ConnectionHealth, *model.OAuthConnection, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	flow, ok := u.flows[platform]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, platform)
	}
	configured, err := u.configured(ctx, ownerID, flow)
	if err != nil {
		return nil, nil, err
	}
	h := &model.ConnectionHealth{Platform: platform, Configured: configured, ProtocolVersion: flow.Protocol()}

	conn, err := u.conns.GetActive(ctx, ownerID, platform)
	switch {
	case errors.Is(err, model.ErrNotFound):
		h.State = model.HealthNotConfigured
		if configured {
			h.State = model.HealthConfiguredNotConnected
		}
		return h, nil, nil
	case err != nil:
		return nil, nil, err
	}

	// An active connection outlives the setup that produced it.
	h.ProtocolVersion = conn.ProtocolVersion
	h.AccountIdentifier = conn.AccountIdentifier
	h.ExpiresAt = conn.ExpiresAt
	h.State = model.HealthConnected
	if conn.Expired(u.now()) {
		h.State = model.HealthConnectedExpired
	}
	return h, conn, nil
}

func (u *reconcilerUsecase) configured(ctx context.Context, ownerID string, flow repository.IOAuthFlow) (bool, error) {
	if !flow.RequiresAppSetup() {
		_, ok := flow.StaticCredentials()
		return ok, nil
	}
	setup, err := u.setups.Get(ctx, ownerID, flow.Platform())
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return setup.Validated, nil
}
