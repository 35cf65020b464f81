package repository

import (
	"context"

	"newsroom/domain/model"
)

type IPublishAttempt interface {
	Insert(ctx context.Context, a *model.PublishAttempt) error
	ListByPost(ctx context.Context, ownerID, postID string) ([]*model.PublishAttempt, error)
}

// IPublisher posts content for one (platform, protocol) pair and returns the external post id.
// Non-2xx answers are returned as *model.ProviderHTTPError.
type IPublisher interface {
	Publish(ctx context.Context, req model.PublishRequest) (string, error)
}
