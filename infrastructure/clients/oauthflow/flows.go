package oauthflow

import (
	"net/http"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/configuration"
)

// NewFlows builds one flow per enabled platform from configuration.
func NewFlows(cfg configuration.OAuth, httpClient *http.Client) map[string]repository.IOAuthFlow {
	flows := map[string]repository.IOAuthFlow{}

	if tw := cfg.Twitter; tw.IsEnabled() {
		if model.ProtocolVersion(tw.Protocol) == model.ProtocolOAuth2 {
			flows[configuration.PlatformTwitter] = NewOAuth2Flow(OAuth2Options{
				Platform:      configuration.PlatformTwitter,
				AuthURL:       tw.AuthURL,
				TokenURL:      tw.TokenURL,
				Scopes:        tw.Scopes,
				PKCE:          true,
				RequiresSetup: true,
				Resolve:       TwitterResolver(tw.APIBaseURL),
				HTTPClient:    httpClient,
			})
		} else {
			flows[configuration.PlatformTwitter] = NewOAuth1Flow(OAuth1Options{
				Platform:        configuration.PlatformTwitter,
				RequestTokenURL: tw.RequestTokenURL,
				AuthorizeURL:    tw.AuthorizeURL,
				AccessTokenURL:  tw.AccessTokenURL,
				ConsumerKey:     tw.ConsumerKey,
				ConsumerSecret:  tw.ConsumerSecret,
				CallbackURL:     tw.CallbackURL,
				APIBaseURL:      tw.APIBaseURL,
				HTTPClient:      httpClient,
			})
		}
	}
	if li := cfg.LinkedIn; li.IsEnabled() {
		flows[configuration.PlatformLinkedIn] = NewOAuth2Flow(OAuth2Options{
			Platform:      configuration.PlatformLinkedIn,
			AuthURL:       li.AuthURL,
			TokenURL:      li.TokenURL,
			Scopes:        li.Scopes,
			RequiresSetup: true,
			Resolve:       LinkedInResolver(li.APIBaseURL),
			HTTPClient:    httpClient,
		})
	}
	if fb := cfg.Facebook; fb.IsEnabled() {
		flows[configuration.PlatformFacebook] = NewOAuth2Flow(OAuth2Options{
			Platform:      configuration.PlatformFacebook,
			AuthURL:       fb.AuthURL,
			TokenURL:      fb.TokenURL,
			Scopes:        fb.Scopes,
			RequiresSetup: true,
			Resolve:       FacebookResolver(fb.APIBaseURL),
			HTTPClient:    httpClient,
		})
	}
	if md := cfg.Mastodon; md.IsEnabled() {
		flows[configuration.PlatformMastodon] = NewOAuth2Flow(OAuth2Options{
			Platform:      configuration.PlatformMastodon,
			AuthURL:       md.AuthURL,
			TokenURL:      md.TokenURL,
			Scopes:        md.Scopes,
			PKCE:          true,
			RequiresSetup: true,
			Resolve:       MastodonResolver(md.APIBaseURL),
			HTTPClient:    httpClient,
		})
	}
	return flows
}
