package oauthflow

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"newsroom/domain/model"
	"newsroom/infrastructure/clients/apiclient"

	"github.com/google/go-querystring/query"
	"github.com/mattn/go-mastodon"
)

// LinkedInResolver reads the member id from the OpenID userinfo endpoint.
func LinkedInResolver(apiBaseURL string) AccountResolver {
	base := strings.TrimRight(apiBaseURL, "/")
	return func(ctx context.Context, client *http.Client, _ model.AppCredentials, m model.OAuth2Material) (string, model.OAuth2Material, error) {
		var info struct {
			Sub string `json:"sub"`
		}
		if err := apiclient.GetJSON(ctx, client, base+"/v2/userinfo", m.AccessToken, &info); err != nil {
			return "", m, err
		}
		if info.Sub == "" {
			return "", m, fmt.Errorf("linkedin userinfo returned no subject")
		}
		return info.Sub, m, nil
	}
}

// TwitterResolver reads the user id for a 2.0 user-context token.
func TwitterResolver(apiBaseURL string) AccountResolver {
	base := strings.TrimRight(apiBaseURL, "/")
	return func(ctx context.Context, client *http.Client, _ model.AppCredentials, m model.OAuth2Material) (string, model.OAuth2Material, error) {
		var me struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := apiclient.GetJSON(ctx, client, base+"/2/users/me", m.AccessToken, &me); err != nil {
			return "", m, err
		}
		return me.Data.ID, m, nil
	}
}

// MastodonResolver verifies the token against the instance and returns the account id.
func MastodonResolver(server string) AccountResolver {
	return func(ctx context.Context, client *http.Client, _ model.AppCredentials, m model.OAuth2Material) (string, model.OAuth2Material, error) {
		c := mastodon.NewClient(&mastodon.Config{Server: server, AccessToken: m.AccessToken})
		if client != nil {
			c.Client = *client
		}
		acct, err := c.GetAccountCurrentUser(ctx)
		if err != nil {
			return "", m, err
		}
		return string(acct.ID), m, nil
	}
}

type fbExchangeParams struct {
	GrantType       string `url:"grant_type"`
	ClientID        string `url:"client_id"`
	ClientSecret    string `url:"client_secret"`
	FBExchangeToken string `url:"fb_exchange_token"`
}

type fbToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type fbPages struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// FacebookResolver trades the short-lived user token for a long-lived one, then
// selects the first managed page and keeps that page's token for publishing.
func FacebookResolver(graphBaseURL string) AccountResolver {
	base := strings.TrimRight(graphBaseURL, "/")
	return func(ctx context.Context, client *http.Client, app model.AppCredentials, m model.OAuth2Material) (string, model.OAuth2Material, error) {
		params, err := query.Values(fbExchangeParams{
			GrantType:       "fb_exchange_token",
			ClientID:        app.ClientID,
			ClientSecret:    app.ClientSecret,
			FBExchangeToken: m.AccessToken,
		})
		if err != nil {
			return "", m, err
		}
		var long fbToken
		if err := apiclient.GetJSON(ctx, client, base+"/oauth/access_token?"+params.Encode(), "", &long); err != nil {
			return "", m, fmt.Errorf("long-lived exchange: %w", err)
		}

		var pages fbPages
		if err := apiclient.GetJSON(ctx, client, base+"/me/accounts", long.AccessToken, &pages); err != nil {
			return "", m, fmt.Errorf("list pages: %w", err)
		}
		if len(pages.Data) == 0 || pages.Data[0].AccessToken == "" {
			return "", m, fmt.Errorf("no manageable pages on this account")
		}
		page := pages.Data[0]

		out := model.OAuth2Material{AccessToken: page.AccessToken}
		if long.ExpiresIn > 0 {
			exp := time.Now().Add(time.Duration(long.ExpiresIn) * time.Second).UTC()
			out.ExpiresAt = &exp
		}
		return page.ID, out, nil
	}
}
