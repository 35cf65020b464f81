package pubsub

import (
	"context"
	"errors"

	"cloud.google.com/go/pubsub"
)

// NewPubSub creates a Pub/Sub client. An empty project id disables Pub/Sub.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID)
}
