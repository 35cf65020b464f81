package social

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	"github.com/dghubble/oauth1"
)

type tweetBody struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// TwitterOAuth1Publisher signs requests with the consumer keys and the user's token pair.
type TwitterOAuth1Publisher struct {
	apiBaseURL string
	config     *oauth1.Config
	httpClient *http.Client
}

var _ repository.IPublisher = (*TwitterOAuth1Publisher)(nil)

func NewTwitterOAuth1Publisher(apiBaseURL, consumerKey, consumerSecret string, httpClient *http.Client) *TwitterOAuth1Publisher {
	return &TwitterOAuth1Publisher{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		config:     oauth1.NewConfig(consumerKey, consumerSecret),
		httpClient: httpClient,
	}
}

func (p *TwitterOAuth1Publisher) Publish(ctx context.Context, req model.PublishRequest) (string, error) {
	m, ok := req.Tokens.(model.OAuth1Material)
	if !ok || m.Token == "" {
		return "", fmt.Errorf("%w: expected an OAuth 1.0a token pair", model.ErrInvalidInput)
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, p.httpClient)
	}
	client := p.config.Client(ctx, oauth1.NewToken(m.Token, m.TokenSecret))
	var out tweetResponse
	if _, err := postJSON(ctx, client, p.apiBaseURL+"/2/tweets", "", nil, tweetBody{Text: req.Content}, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("%w: tweet created without id", model.ErrInvalidInput)
	}
	return out.Data.ID, nil
}

type TwitterOAuth2Publisher struct {
	apiBaseURL string
	httpClient *http.Client
}

var _ repository.IPublisher = (*TwitterOAuth2Publisher)(nil)

func NewTwitterOAuth2Publisher(apiBaseURL string, httpClient *http.Client) *TwitterOAuth2Publisher {
	return &TwitterOAuth2Publisher{apiBaseURL: strings.TrimRight(apiBaseURL, "/"), httpClient: httpClient}
}

func (p *TwitterOAuth2Publisher) Publish(ctx context.Context, req model.PublishRequest) (string, error) {
	token, err := oauth2Token(req)
	if err != nil {
		return "", err
	}
	var out tweetResponse
	if _, err := postJSON(ctx, p.httpClient, p.apiBaseURL+"/2/tweets", token, nil, tweetBody{Text: req.Content}, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("%w: tweet created without id", model.ErrInvalidInput)
	}
	return out.Data.ID, nil
}
