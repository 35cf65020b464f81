package social

import (
	"context"
	"errors"
	"net/http"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	"github.com/mattn/go-mastodon"
)

type MastodonPublisher struct {
	server     string
	httpClient *http.Client
}

var _ repository.IPublisher = (*MastodonPublisher)(nil)

func NewMastodonPublisher(server string, httpClient *http.Client) *MastodonPublisher {
	return &MastodonPublisher{server: server, httpClient: httpClient}
}

func (p *MastodonPublisher) Publish(ctx context.Context, req model.PublishRequest) (string, error) {
	token, err := oauth2Token(req)
	if err != nil {
		return "", err
	}
	c := mastodon.NewClient(&mastodon.Config{Server: p.server, AccessToken: token})
	if p.httpClient != nil {
		c.Client = *p.httpClient
	}
	status, err := c.PostStatus(ctx, &mastodon.Toot{Status: req.Content, Visibility: mastodon.VisibilityPublic})
	if err != nil {
		var apiErr *mastodon.APIError
		if errors.As(err, &apiErr) {
			return "", &model.ProviderHTTPError{StatusCode: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", err
	}
	return string(status.ID), nil
}
