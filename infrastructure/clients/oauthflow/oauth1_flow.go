package oauthflow

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/clients/apiclient"
	"newsroom/infrastructure/logger"

	"github.com/dghubble/oauth1"
)

const defaultExchangeTimeout = 30 * time.Second

// OAuth1Flow runs the three-legged 1.0a flow with operator consumer keys.
type OAuth1Flow struct {
	platform   string
	endpoint   oauth1.Endpoint
	static     *model.AppCredentials
	apiBaseURL string
	httpClient *http.Client
}

var _ repository.IOAuthFlow = (*OAuth1Flow)(nil)

type OAuth1Options struct {
	Platform        string
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	ConsumerKey     string
	ConsumerSecret  string
	CallbackURL     string
	APIBaseURL      string
	HTTPClient      *http.Client
}

func NewOAuth1Flow(o OAuth1Options) *OAuth1Flow {
	f := &OAuth1Flow{
		platform: o.Platform,
		endpoint: oauth1.Endpoint{
			RequestTokenURL: o.RequestTokenURL,
			AuthorizeURL:    o.AuthorizeURL,
			AccessTokenURL:  o.AccessTokenURL,
		},
		apiBaseURL: strings.TrimRight(o.APIBaseURL, "/"),
		httpClient: o.HTTPClient,
	}
	if o.ConsumerKey != "" && o.ConsumerSecret != "" {
		f.static = &model.AppCredentials{ClientID: o.ConsumerKey, ClientSecret: o.ConsumerSecret, RedirectURI: o.CallbackURL}
	}
	return f
}

func (f *OAuth1Flow) Platform() string                { return f.platform }
func (f *OAuth1Flow) Protocol() model.ProtocolVersion { return model.ProtocolOAuth1 }
func (f *OAuth1Flow) RequiresAppSetup() bool          { return false }

func (f *OAuth1Flow) StaticCredentials() (*model.AppCredentials, bool) {
	if f.static == nil {
		return nil, false
	}
	cp := *f.static
	return &cp, true
}

// config binds the token endpoint calls to ctx; oauth1.Config has no context of its own.
func (f *OAuth1Flow) config(ctx context.Context, app model.AppCredentials, state string) *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    app.ClientID,
		ConsumerSecret: app.ClientSecret,
		CallbackURL:    callbackWithState(app.RedirectURI, state),
		Endpoint:       f.endpoint,
		HTTPClient:     f.client(ctx),
	}
}

func (f *OAuth1Flow) client(ctx context.Context) *http.Client {
	base := f.httpClient
	if base == nil {
		base = &http.Client{Timeout: defaultExchangeTimeout}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	cp := *base
	cp.Transport = contextTransport{ctx: ctx, next: transport}
	return &cp
}

type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

// Begin obtains a request token. The state rides on the callback URL because 1.0a has no state parameter.
func (f *OAuth1Flow) Begin(ctx context.Context, app model.AppCredentials, state string) (*model.AuthorizationStart, error) {
	cfg := f.config(ctx, app, state)
	requestToken, requestSecret, err := cfg.RequestToken()
	if err != nil {
		return nil, model.NewOAuthProviderError(model.OAuthServerError, "request token failed", err)
	}
	authURL, err := cfg.AuthorizationURL(requestToken)
	if err != nil {
		return nil, model.NewOAuthProviderError(model.OAuthServerError, "authorization url", err)
	}
	return &model.AuthorizationStart{
		AuthURL:       authURL.String(),
		RequestToken:  requestToken,
		RequestSecret: requestSecret,
	}, nil
}

func (f *OAuth1Flow) Complete(ctx context.Context, app model.AppCredentials, pending *model.PendingAuthorization, cb model.CallbackParams) (*model.ExchangeResult, error) {
	if cb.Denied != "" || cb.Error != "" {
		code := cb.Error
		if code == "" {
			code = "access_denied"
		}
		return nil, model.NewOAuthProviderError(model.OAuthErrorKindFromCode(code), cb.ErrorDescription, nil)
	}
	if cb.OAuthToken == "" || cb.OAuthToken != pending.RequestToken {
		return nil, model.NewOAuthProviderError(model.OAuthInvalidState, "request token does not match", nil)
	}
	if cb.OAuthVerifier == "" {
		return nil, model.NewOAuthProviderError(model.OAuthServerError, "callback carried no verifier", nil)
	}
	cfg := f.config(ctx, app, pending.State)
	token, secret, err := cfg.AccessToken(pending.RequestToken, pending.RequestSecret, cb.OAuthVerifier)
	if err != nil {
		return nil, model.NewOAuthProviderError(model.OAuthServerError, "access token exchange failed", err)
	}
	material := model.OAuth1Material{Token: token, TokenSecret: secret}
	return &model.ExchangeResult{Material: material, AccountIdentifier: f.lookupAccount(ctx, cfg, material)}, nil
}

func (f *OAuth1Flow) Refresh(context.Context, model.AppCredentials, model.TokenMaterial) (model.TokenMaterial, error) {
	return nil, model.ErrRefreshNotSupported
}

// lookupAccount asks the API who the token belongs to. Access tokens are "<user id>-<secret part>",
// which serves as the fallback.
func (f *OAuth1Flow) lookupAccount(ctx context.Context, cfg *oauth1.Config, m model.OAuth1Material) string {
	if f.apiBaseURL != "" {
		var me struct {
			Data struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"data"`
		}
		client := cfg.Client(context.WithValue(ctx, oauth1.HTTPClient, cfg.HTTPClient), oauth1.NewToken(m.Token, m.TokenSecret))
		err := apiclient.GetJSON(ctx, client, f.apiBaseURL+"/2/users/me", "", &me)
		if err == nil && me.Data.ID != "" {
			return me.Data.ID
		}
		logger.GetLogger().WithField("error", err).WithField("platform", f.platform).Warn("Account lookup failed, using token prefix")
	}
	if i := strings.IndexByte(m.Token, '-'); i > 0 {
		return m.Token[:i]
	}
	return ""
}

func callbackWithState(callback, state string) string {
	if state == "" {
		return callback
	}
	u, err := url.Parse(callback)
	if err != nil {
		return callback
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}
