package configuration

import (
	"fmt"
	"os"
	"strings"
)

const (
	PlatformTwitter  = "twitter"
	PlatformLinkedIn = "linkedin"
	PlatformFacebook = "facebook"
	PlatformMastodon = "mastodon"
)

func initOAuth(C *Config) {
	if C.OAuth.StateTTLSeconds <= 0 {
		C.OAuth.StateTTLSeconds = 600
	}

	tw := &C.OAuth.Twitter
	tw.Protocol = getConfigValue(tw.Protocol, "TWITTER_OAUTH_PROTOCOL", "1.0a")
	tw.ConsumerKey = getConfigValue(tw.ConsumerKey, "TWITTER_CONSUMER_KEY", "")
	tw.ConsumerSecret = getConfigValue(tw.ConsumerSecret, "TWITTER_CONSUMER_SECRET", "")
	tw.RequestTokenURL = defaultString(tw.RequestTokenURL, "https://api.twitter.com/oauth/request_token")
	tw.AuthorizeURL = defaultString(tw.AuthorizeURL, "https://api.twitter.com/oauth/authorize")
	tw.AccessTokenURL = defaultString(tw.AccessTokenURL, "https://api.twitter.com/oauth/access_token")
	tw.AuthURL = defaultString(tw.AuthURL, "https://twitter.com/i/oauth2/authorize")
	tw.TokenURL = defaultString(tw.TokenURL, "https://api.twitter.com/2/oauth2/token")
	tw.APIBaseURL = defaultString(tw.APIBaseURL, "https://api.twitter.com")
	if len(tw.Scopes) == 0 {
		tw.Scopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
	}

	li := &C.OAuth.LinkedIn
	li.Protocol = "2.0"
	li.AuthURL = defaultString(li.AuthURL, "https://www.linkedin.com/oauth/v2/authorization")
	li.TokenURL = defaultString(li.TokenURL, "https://www.linkedin.com/oauth/v2/accessToken")
	li.APIBaseURL = defaultString(li.APIBaseURL, "https://api.linkedin.com")
	if len(li.Scopes) == 0 {
		li.Scopes = []string{"openid", "profile", "w_member_social"}
	}

	fb := &C.OAuth.Facebook
	fb.Protocol = "2.0"
	fb.APIBaseURL = defaultString(fb.APIBaseURL, "https://graph.facebook.com/v19.0")
	fb.AuthURL = defaultString(fb.AuthURL, "https://www.facebook.com/v19.0/dialog/oauth")
	fb.TokenURL = defaultString(fb.TokenURL, fb.APIBaseURL+"/oauth/access_token")
	if len(fb.Scopes) == 0 {
		fb.Scopes = []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts", "public_profile"}
	}

	md := &C.OAuth.Mastodon
	md.Protocol = "2.0"
	md.APIBaseURL = strings.TrimRight(getConfigValue(md.APIBaseURL, "MASTODON_SERVER", "https://mastodon.social"), "/")
	md.AuthURL = defaultString(md.AuthURL, md.APIBaseURL+"/oauth/authorize")
	md.TokenURL = defaultString(md.TokenURL, md.APIBaseURL+"/oauth/token")
	if len(md.Scopes) == 0 {
		md.Scopes = []string{"read:accounts", "write:statuses"}
	}

	// 1.0a callbacks are ours; the state is appended per request.
	tw.CallbackURL = getConfigValue(tw.CallbackURL, "TWITTER_CALLBACK_URL", CallbackURL(PlatformTwitter))
	if C.App.TLSEnabled && !hasHTTPS(tw.CallbackURL) {
		tw.CallbackURL = toHTTPSCallback(tw.CallbackURL)
	}
}

// CallbackURL is the default redirect target for a platform on this deployment.
func CallbackURL(platform string) string {
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(C.App.BaseURL, "/"), platform)
}

func getConfigValue(configValue, envKey, defaultValue string) string {
	// Environment variable takes precedence when provided
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }

func toHTTPSCallback(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + u[len("http://"):]
	}
	return u
}
