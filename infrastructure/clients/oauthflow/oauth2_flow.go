package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	"golang.org/x/oauth2"
)

// AccountResolver looks up the platform account behind a fresh token. It may swap the
// material, as Facebook does when trading a user token for a page token.
type AccountResolver func(ctx context.Context, client *http.Client, app model.AppCredentials, m model.OAuth2Material) (string, model.OAuth2Material, error)

// OAuth2Flow runs the authorization code grant, with PKCE when the platform supports it.
type OAuth2Flow struct {
	platform      string
	endpoint      oauth2.Endpoint
	scopes        []string
	pkce          bool
	requiresSetup bool
	static        *model.AppCredentials
	resolve       AccountResolver
	httpClient    *http.Client
}

var _ repository.IOAuthFlow = (*OAuth2Flow)(nil)

type OAuth2Options struct {
	Platform      string
	AuthURL       string
	TokenURL      string
	Scopes        []string
	PKCE          bool
	RequiresSetup bool
	Static        *model.AppCredentials
	Resolve       AccountResolver
	HTTPClient    *http.Client
}

func NewOAuth2Flow(o OAuth2Options) *OAuth2Flow {
	return &OAuth2Flow{
		platform:      o.Platform,
		endpoint:      oauth2.Endpoint{AuthURL: o.AuthURL, TokenURL: o.TokenURL},
		scopes:        o.Scopes,
		pkce:          o.PKCE,
		requiresSetup: o.RequiresSetup,
		static:        o.Static,
		resolve:       o.Resolve,
		httpClient:    o.HTTPClient,
	}
}

func (f *OAuth2Flow) Platform() string                { return f.platform }
func (f *OAuth2Flow) Protocol() model.ProtocolVersion { return model.ProtocolOAuth2 }
func (f *OAuth2Flow) RequiresAppSetup() bool          { return f.requiresSetup }

func (f *OAuth2Flow) StaticCredentials() (*model.AppCredentials, bool) {
	if f.static == nil || f.static.ClientID == "" {
		return nil, false
	}
	cp := *f.static
	return &cp, true
}

func (f *OAuth2Flow) config(app model.AppCredentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		RedirectURL:  app.RedirectURI,
		Scopes:       f.scopes,
		Endpoint:     f.endpoint,
	}
}

func (f *OAuth2Flow) withClient(ctx context.Context) context.Context {
	if f.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
}

func (f *OAuth2Flow) Begin(_ context.Context, app model.AppCredentials, state string) (*model.AuthorizationStart, error) {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	start := &model.AuthorizationStart{}
	if f.pkce {
		start.CodeVerifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(start.CodeVerifier))
	}
	start.AuthURL = f.config(app).AuthCodeURL(state, opts...)
	return start, nil
}

func (f *OAuth2Flow) Complete(ctx context.Context, app model.AppCredentials, pending *model.PendingAuthorization, cb model.CallbackParams) (*model.ExchangeResult, error) {
	if cb.Error != "" {
		return nil, model.NewOAuthProviderError(model.OAuthErrorKindFromCode(cb.Error), cb.ErrorDescription, nil)
	}
	if cb.Code == "" {
		return nil, model.NewOAuthProviderError(model.OAuthServerError, "callback carried no authorization code", nil)
	}
	var opts []oauth2.AuthCodeOption
	if pending.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(pending.CodeVerifier))
	}
	ctx = f.withClient(ctx)
	tok, err := f.config(app).Exchange(ctx, cb.Code, opts...)
	if err != nil {
		return nil, exchangeError(err)
	}
	material := materialFromToken(tok)

	account := ""
	if f.resolve != nil {
		account, material, err = f.resolve(ctx, f.client(), app, material)
		if err != nil {
			return nil, model.NewOAuthProviderError(model.OAuthServerError, "account lookup failed", err)
		}
	}
	return &model.ExchangeResult{Material: material, AccountIdentifier: account}, nil
}

// Refresh forces a refresh grant by presenting the token as already expired.
func (f *OAuth2Flow) Refresh(ctx context.Context, app model.AppCredentials, material model.TokenMaterial) (model.TokenMaterial, error) {
	m, ok := material.(model.OAuth2Material)
	if !ok {
		return nil, model.ErrRefreshNotSupported
	}
	if !m.Refreshable() {
		return nil, fmt.Errorf("%w: connection has no refresh token", model.ErrRefreshNotSupported)
	}
	expired := &oauth2.Token{
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-1 * time.Minute),
	}
	tok, err := f.config(app).TokenSource(f.withClient(ctx), expired).Token()
	if err != nil {
		return nil, refreshError(err)
	}
	return materialFromToken(tok), nil
}

func (f *OAuth2Flow) client() *http.Client {
	if f.httpClient != nil {
		return f.httpClient
	}
	return http.DefaultClient
}

func materialFromToken(tok *oauth2.Token) model.OAuth2Material {
	m := model.OAuth2Material{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		m.ExpiresAt = &exp
	}
	return m
}

func exchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		kind := model.OAuthErrorKindFromCode(re.ErrorCode)
		if re.Response != nil && re.Response.StatusCode >= 500 {
			kind = model.OAuthServerError
		}
		return model.NewOAuthProviderError(kind, re.ErrorDescription, err)
	}
	return model.NewOAuthProviderError(model.OAuthServerError, "token exchange failed", err)
}

// refreshError reports a rejected refresh grant as a revoked connection so callers can
// deactivate it. Other failures keep the connection.
func refreshError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "invalid_grant", "invalid_token", "unauthorized_client":
			return fmt.Errorf("%w: %s", model.ErrConnectionExpiredOrRevoked, re.ErrorCode)
		}
		if re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: refresh rejected", model.ErrConnectionExpiredOrRevoked)
		}
		return model.NewOAuthProviderError(model.OAuthErrorKindFromCode(re.ErrorCode), re.ErrorDescription, err)
	}
	return model.NewOAuthProviderError(model.OAuthServerError, "token refresh failed", err)
}
