package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	"github.com/redis/go-redis/v9"
)

const oauthStateKeyPrefix = "newsroom:oauth:state:"

// OAuthStateCache keeps pending authorizations until the provider redirects back.
// GETDEL makes every state single use.
type OAuthStateCache struct {
	client *redis.Client
}

var _ repository.IOAuthState = (*OAuthStateCache)(nil)

func NewOAuthStateCache(client *redis.Client) *OAuthStateCache {
	return &OAuthStateCache{client: client}
}

func (c *OAuthStateCache) Save(ctx context.Context, p *model.PendingAuthorization, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, oauthStateKeyPrefix+p.State, data, ttl).Err()
}

func (c *OAuthStateCache) Consume(ctx context.Context, state string) (*model.PendingAuthorization, error) {
	data, err := c.client.GetDel(ctx, oauthStateKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := &model.PendingAuthorization{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}
