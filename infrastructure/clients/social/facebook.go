package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/clients/apiclient"

	"github.com/google/go-querystring/query"
)

type facebookFeedForm struct {
	Message     string `url:"message"`
	AccessToken string `url:"access_token"`
}

// FacebookPublisher posts to the connected page feed with the page token.
type FacebookPublisher struct {
	graphBaseURL string
	httpClient   *http.Client
}

var _ repository.IPublisher = (*FacebookPublisher)(nil)

func NewFacebookPublisher(graphBaseURL string, httpClient *http.Client) *FacebookPublisher {
	return &FacebookPublisher{graphBaseURL: strings.TrimRight(graphBaseURL, "/"), httpClient: httpClient}
}

func (p *FacebookPublisher) Publish(ctx context.Context, req model.PublishRequest) (string, error) {
	token, err := oauth2Token(req)
	if err != nil {
		return "", err
	}
	if req.AccountIdentifier == "" {
		return "", fmt.Errorf("%w: facebook connection has no page id", model.ErrInvalidInput)
	}
	form, err := query.Values(facebookFeedForm{Message: req.Content, AccessToken: token})
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/%s/feed", p.graphBaseURL, url.PathEscape(req.AccountIdentifier))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		ID string `json:"id"`
	}
	if _, err := apiclient.Do(p.httpClient, httpReq, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: facebook post created without id", model.ErrInvalidInput)
	}
	return out.ID, nil
}
