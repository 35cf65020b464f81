package repository

import (
	"context"
	"time"

	"newsroom/domain/model"
)

// IOAuthConnection stores connection rows. At most one row per (owner, platform) is active.
type IOAuthConnection interface {
	// ReplaceActive deactivates the current active row, if any, and inserts c as active in one step.
	ReplaceActive(ctx context.Context, c *model.OAuthConnection) error
	GetActive(ctx context.Context, ownerID, platform string) (*model.OAuthConnection, error)
	ListActive(ctx context.Context, ownerID string) ([]*model.OAuthConnection, error)
	UpdateTokens(ctx context.Context, id int64, accessRef, secondaryRef string, expiresAt *time.Time, validatedAt time.Time) error
	// Deactivate soft-revokes the active row and reports whether one existed.
	Deactivate(ctx context.Context, ownerID, platform, reason string, at time.Time) (bool, error)
	// DeactivateByID soft-revokes one row if it is still active. A row already replaced is left alone.
	DeactivateByID(ctx context.Context, id int64, reason string, at time.Time) (bool, error)
}

// IOAuthState holds pending authorizations until the provider redirects back.
type IOAuthState interface {
	Save(ctx context.Context, p *model.PendingAuthorization, ttl time.Duration) error
	// Consume returns and removes the pending authorization. Unknown or expired state yields model.ErrNotFound.
	Consume(ctx context.Context, state string) (*model.PendingAuthorization, error)
}

// IOAuthFlow drives one platform's authorization protocol.
type IOAuthFlow interface {
	Platform() string
	Protocol() model.ProtocolVersion
	// RequiresAppSetup is true when the user must register their own client id and secret.
	RequiresAppSetup() bool
	// StaticCredentials returns operator-provided app keys for platforms that do not need setup.
	StaticCredentials() (*model.AppCredentials, bool)
	Begin(ctx context.Context, app model.AppCredentials, state string) (*model.AuthorizationStart, error)
	Complete(ctx context.Context, app model.AppCredentials, pending *model.PendingAuthorization, cb model.CallbackParams) (*model.ExchangeResult, error)
	Refresh(ctx context.Context, app model.AppCredentials, material model.TokenMaterial) (model.TokenMaterial, error)
}
