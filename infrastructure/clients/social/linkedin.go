package social

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

const linkedInVersion = "202405"

type linkedInPost struct {
	Author                    string               `json:"author"`
	Commentary                string               `json:"commentary"`
	Visibility                string               `json:"visibility"`
	Distribution              linkedInDistribution `json:"distribution"`
	LifecycleState            string               `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool                 `json:"isReshareDisabledByAuthor"`
}

type linkedInDistribution struct {
	FeedDistribution               string   `json:"feedDistribution"`
	TargetEntities                 []string `json:"targetEntities"`
	ThirdPartyDistributionChannels []string `json:"thirdPartyDistributionChannels"`
}

type LinkedInPublisher struct {
	apiBaseURL string
	httpClient *http.Client
}

var _ repository.IPublisher = (*LinkedInPublisher)(nil)

func NewLinkedInPublisher(apiBaseURL string, httpClient *http.Client) *LinkedInPublisher {
	return &LinkedInPublisher{apiBaseURL: strings.TrimRight(apiBaseURL, "/"), httpClient: httpClient}
}

// Publish creates a member post. The new post URN comes back in the x-restli-id header.
func (p *LinkedInPublisher) Publish(ctx context.Context, req model.PublishRequest) (string, error) {
	token, err := oauth2Token(req)
	if err != nil {
		return "", err
	}
	if req.AccountIdentifier == "" {
		return "", fmt.Errorf("%w: linkedin connection has no member id", model.ErrInvalidInput)
	}
	author := req.AccountIdentifier
	if !strings.HasPrefix(author, "urn:") {
		author = "urn:li:person:" + author
	}
	body := linkedInPost{
		Author:         author,
		Commentary:     req.Content,
		Visibility:     "PUBLIC",
		LifecycleState: "PUBLISHED",
		Distribution: linkedInDistribution{
			FeedDistribution:               "MAIN_FEED",
			TargetEntities:                 []string{},
			ThirdPartyDistributionChannels: []string{},
		},
	}
	headers := map[string]string{
		"LinkedIn-Version":          linkedInVersion,
		"X-Restli-Protocol-Version": "2.0.0",
	}
	resp, err := postJSON(ctx, p.httpClient, p.apiBaseURL+"/rest/posts", token, headers, body, nil)
	if err != nil {
		return "", err
	}
	id := resp.Header.Get("x-restli-id")
	if id == "" {
		return "", fmt.Errorf("%w: linkedin post created without x-restli-id", model.ErrInvalidInput)
	}
	return id, nil
}
