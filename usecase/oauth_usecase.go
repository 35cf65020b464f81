package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/logger"
	"newsroom/infrastructure/utils"
)

const (
	ReasonDisconnected        = "disconnected"
	ReasonRefreshRejected     = "refresh_rejected"
	ReasonPublishUnauthorized = "publish_unauthorized"
)

type IOAuthUsecase interface {
	// InitiateConnect returns the provider URL the user must visit.
	InitiateConnect(ctx context.Context, ownerID, platform, returnURL string) (string, error)
	// HandleCallback completes a flow. ownerID may be empty; the pending authorization names the owner.
	HandleCallback(ctx context.Context, ownerID, platform string, params model.CallbackParams) (*model.CallbackOutcome, error)
	Status(ctx context.Context, ownerID, platform string) (*model.ConnectionStatus, error)
	Refresh(ctx context.Context, ownerID, platform string) (*model.ConnectionStatus, error)
	Disconnect(ctx context.Context, ownerID, platform string) error
}

type OAuthOption func(*oauthUsecase)

func WithOAuthClock(now func() time.Time) OAuthOption {
	return func(u *oauthUsecase) { u.now = now }
}

type oauthUsecase struct {
	flows       map[string]repository.IOAuthFlow
	credentials ICredentialUsecase
	conns       repository.IOAuthConnection
	states      repository.IOAuthState
	stateTTL    time.Duration
	now         func() time.Time
}

func NewOAuthUsecase(flows map[string]repository.IOAuthFlow, credentials ICredentialUsecase, conns repository.IOAuthConnection, states repository.IOAuthState, stateTTL time.Duration, opts ...OAuthOption) IOAuthUsecase {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	u := &oauthUsecase{
		flows:       flows,
		credentials: credentials,
		conns:       conns,
		states:      states,
		stateTTL:    stateTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *oauthUsecase) flow(platform string) (string, repository.IOAuthFlow, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	f, ok := u.flows[platform]
	if !ok {
		return platform, nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, platform)
	}
	return platform, f, nil
}

func (u *oauthUsecase) appCredentials(ctx context.Context, ownerID string, f repository.IOAuthFlow) (*model.AppCredentials, error) {
	if f.RequiresAppSetup() {
		return u.credentials.LoadAppCredentials(ctx, ownerID, f.Platform())
	}
	app, ok := f.StaticCredentials()
	if !ok {
		return nil, fmt.Errorf("%w: %s consumer keys are not set", model.ErrCredentialsNotConfigured, f.Platform())
	}
	return app, nil
}

func (u *oauthUsecase) InitiateConnect(ctx context.Context, ownerID, platform, returnURL string) (string, error) {
	platform, f, err := u.flow(platform)
	if err != nil {
		return "", err
	}
	app, err := u.appCredentials(ctx, ownerID, f)
	if err != nil {
		return "", err
	}
	state, err := utils.RandomState()
	if err != nil {
		return "", err
	}
	start, err := f.Begin(ctx, *app, state)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", platform).Error("Error while starting authorization")
		return "", err
	}
	pending := &model.PendingAuthorization{
		State:         state,
		OwnerID:       ownerID,
		Platform:      platform,
		Protocol:      f.Protocol(),
		ReturnURL:     returnURL,
		CodeVerifier:  start.CodeVerifier,
		RequestToken:  start.RequestToken,
		RequestSecret: start.RequestSecret,
		CreatedAt:     u.now(),
	}
	if err := u.states.Save(ctx, pending, u.stateTTL); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while saving pending authorization")
		return "", err
	}
	logger.GetLogger().WithField("platform", platform).WithField("owner_id", ownerID).Info("Authorization started")
	return start.AuthURL, nil
}

func (u *oauthUsecase) HandleCallback(ctx context.Context, ownerID, platform string, params model.CallbackParams) (*model.CallbackOutcome, error) {
	platform, f, err := u.flow(platform)
	if err != nil {
		return nil, err
	}
	if params.State == "" {
		return nil, model.NewOAuthProviderError(model.OAuthInvalidState, "missing state", nil)
	}
	pending, err := u.states.Consume(ctx, params.State)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.NewOAuthProviderError(model.OAuthInvalidState, "unknown or expired state", nil)
	}
	if err != nil {
		return nil, err
	}
	if pending.Platform != platform || pending.Protocol != f.Protocol() || (ownerID != "" && pending.OwnerID != ownerID) {
		return nil, model.NewOAuthProviderError(model.OAuthInvalidState, "state does not match this authorization", nil)
	}
	ownerID = pending.OwnerID

	app, err := u.appCredentials(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	result, err := f.Complete(ctx, *app, pending, params)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", platform).Warn("Authorization callback failed")
		return nil, err
	}

	accessRef, secondaryRef, err := u.credentials.StoreTokenMaterial(ctx, ownerID, platform, result.Material)
	if err != nil {
		return nil, err
	}
	_, _, expiresAt := model.SplitTokenMaterial(result.Material)
	now := u.now()
	conn := &model.OAuthConnection{
		OwnerID:           ownerID,
		Platform:          platform,
		ProtocolVersion:   result.Material.Protocol(),
		AccessTokenRef:    accessRef,
		SecondaryTokenRef: secondaryRef,
		AccountIdentifier: result.AccountIdentifier,
		ExpiresAt:         expiresAt,
		IsActive:          true,
		LastValidatedAt:   &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := u.conns.ReplaceActive(ctx, conn); err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", platform).Error("Error while storing connection")
		return nil, err
	}
	logger.GetLogger().WithField("platform", platform).WithField("owner_id", ownerID).WithField("account", conn.AccountIdentifier).Info("Platform connected")
	return &model.CallbackOutcome{OwnerID: ownerID, ReturnURL: pending.ReturnURL, Status: u.statusOf(platform, conn)}, nil
}

func (u *oauthUsecase) Status(ctx context.Context, ownerID, platform string) (*model.ConnectionStatus, error) {
	platform, _, err := u.flow(platform)
	if err != nil {
		return nil, err
	}
	conn, err := u.conns.GetActive(ctx, ownerID, platform)
	if errors.Is(err, model.ErrNotFound) {
		return &model.ConnectionStatus{Platform: platform, State: model.ConnectionNotConnected}, nil
	}
	if err != nil {
		return nil, err
	}
	return u.statusOf(platform, conn), nil
}

func (u *oauthUsecase) statusOf(platform string, conn *model.OAuthConnection) *model.ConnectionStatus {
	st := &model.ConnectionStatus{
		Platform:          platform,
		State:             model.ConnectionConnected,
		ProtocolVersion:   conn.ProtocolVersion,
		AccountIdentifier: conn.AccountIdentifier,
		ExpiresAt:         conn.ExpiresAt,
		LastValidatedAt:   conn.LastValidatedAt,
		Refreshable:       conn.ProtocolVersion == model.ProtocolOAuth2 && conn.SecondaryTokenRef != "",
	}
	if conn.Expired(u.now()) {
		st.State = model.ConnectionExpired
	}
	return st
}

// Refresh forces a refresh grant regardless of the stored expiry. A rejected grant deactivates
// the connection so the owner has to reconnect.
func (u *oauthUsecase) Refresh(ctx context.Context, ownerID, platform string) (*model.ConnectionStatus, error) {
	platform, f, err := u.flow(platform)
	if err != nil {
		return nil, err
	}
	conn, err := u.conns.GetActive(ctx, ownerID, platform)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s is not connected", model.ErrConnectionExpiredOrRevoked, platform)
	}
	if err != nil {
		return nil, err
	}
	if conn.ProtocolVersion != model.ProtocolOAuth2 || conn.SecondaryTokenRef == "" {
		return nil, model.ErrRefreshNotSupported
	}
	material, err := u.credentials.LoadTokenMaterial(ctx, conn)
	if err != nil {
		return nil, err
	}
	app, err := u.appCredentials(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}

	fresh, err := f.Refresh(ctx, *app, material)
	if errors.Is(err, model.ErrConnectionExpiredOrRevoked) {
		if _, derr := u.conns.DeactivateByID(ctx, conn.ID, ReasonRefreshRejected, u.now()); derr != nil {
			logger.GetLogger().WithField("error", derr).Error("Error while deactivating connection")
		}
		logger.GetLogger().WithField("platform", platform).WithField("owner_id", ownerID).Warn("Refresh rejected, connection deactivated")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	accessRef, secondaryRef, err := u.credentials.StoreTokenMaterial(ctx, ownerID, platform, fresh)
	if err != nil {
		return nil, err
	}
	_, _, expiresAt := model.SplitTokenMaterial(fresh)
	now := u.now()
	if err := u.conns.UpdateTokens(ctx, conn.ID, accessRef, secondaryRef, expiresAt, now); err != nil {
		return nil, err
	}
	conn.AccessTokenRef = accessRef
	conn.SecondaryTokenRef = secondaryRef
	conn.ExpiresAt = expiresAt
	conn.LastValidatedAt = &now
	return u.statusOf(platform, conn), nil
}

// Disconnect is idempotent. Token and setup rows are retained.
func (u *oauthUsecase) Disconnect(ctx context.Context, ownerID, platform string) error {
	platform, _, err := u.flow(platform)
	if err != nil {
		return err
	}
	changed, err := u.conns.Deactivate(ctx, ownerID, platform, ReasonDisconnected, u.now())
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("platform", platform).WithField("owner_id", ownerID).WithField("changed", changed).Info("Platform disconnected")
	return nil
}
