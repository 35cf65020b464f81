package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/clients/apiclient"
	"newsroom/infrastructure/configuration"
)

// NewPublishers registers a publisher for every (platform, protocol) pair that can post.
// Both Twitter protocols are registered so connections made under either keep working.
func NewPublishers(cfg configuration.OAuth, httpClient *http.Client) map[model.PublisherKey]repository.IPublisher {
	pubs := map[model.PublisherKey]repository.IPublisher{}
	if cfg.Twitter.IsEnabled() {
		pubs[model.PublisherKey{Platform: configuration.PlatformTwitter, Protocol: model.ProtocolOAuth1}] =
			NewTwitterOAuth1Publisher(cfg.Twitter.APIBaseURL, cfg.Twitter.ConsumerKey, cfg.Twitter.ConsumerSecret, httpClient)
		pubs[model.PublisherKey{Platform: configuration.PlatformTwitter, Protocol: model.ProtocolOAuth2}] =
			NewTwitterOAuth2Publisher(cfg.Twitter.APIBaseURL, httpClient)
	}
	if cfg.LinkedIn.IsEnabled() {
		pubs[model.PublisherKey{Platform: configuration.PlatformLinkedIn, Protocol: model.ProtocolOAuth2}] =
			NewLinkedInPublisher(cfg.LinkedIn.APIBaseURL, httpClient)
	}
	if cfg.Facebook.IsEnabled() {
		pubs[model.PublisherKey{Platform: configuration.PlatformFacebook, Protocol: model.ProtocolOAuth2}] =
			NewFacebookPublisher(cfg.Facebook.APIBaseURL, httpClient)
	}
	if cfg.Mastodon.IsEnabled() {
		pubs[model.PublisherKey{Platform: configuration.PlatformMastodon, Protocol: model.ProtocolOAuth2}] =
			NewMastodonPublisher(cfg.Mastodon.APIBaseURL, httpClient)
	}
	return pubs
}

func oauth2Token(req model.PublishRequest) (string, error) {
	m, ok := req.Tokens.(model.OAuth2Material)
	if !ok || m.AccessToken == "" {
		return "", fmt.Errorf("%w: expected an OAuth 2.0 access token", model.ErrInvalidInput)
	}
	return m.AccessToken, nil
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, headers map[string]string, body, out interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return apiclient.Do(client, req, out)
}
