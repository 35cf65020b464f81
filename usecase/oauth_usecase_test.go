package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type oauthFixture struct {
	s        *stores
	creds    usecase.ICredentialUsecase
	linkedin *MockOAuthFlow
	twitter  *MockOAuthFlow
	u        usecase.IOAuthUsecase
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	s := newStores()
	f := &oauthFixture{s: s, creds: s.credentialUsecase(t), linkedin: newOAuth2Flow("linkedin"), twitter: newOAuth1Flow("twitter")}
	flows := map[string]repository.IOAuthFlow{"linkedin": f.linkedin, "twitter": f.twitter}
	f.u = usecase.NewOAuthUsecase(flows, f.creds, s.conns, s.states, time.Minute)
	return f
}

func (f *oauthFixture) setupLinkedIn(t *testing.T) {
	_, err := f.creds.SaveSetup(context.Background(), "u1", "linkedin", model.SetupInput{
		ClientID: "cid", ClientSecret: "secret", RedirectURI: "https://app.example.com/cb",
	})
	require.NoError(t, err)
}

// begin starts a linkedin connect and returns the state embedded in the auth URL.
func (f *oauthFixture) begin(t *testing.T) string {
	var state string
	start := &model.AuthorizationStart{CodeVerifier: "verifier"}
	f.linkedin.On("Begin", mock.Anything, mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			state = args.String(2)
			start.AuthURL = "https://linkedin.example/auth?state=" + url.QueryEscape(state)
		}).
		Return(start, nil).Once()
	authURL, err := f.u.InitiateConnect(context.Background(), "u1", "linkedin", "/settings")
	require.NoError(t, err)
	assert.Contains(t, authURL, state)
	require.NotEmpty(t, state)
	return state
}

func TestOAuthUsecase_ConnectRequiresSetup(t *testing.T) {
	f := newOAuthFixture(t)
	_, err := f.u.InitiateConnect(context.Background(), "u1", "linkedin", "")
	assert.ErrorIs(t, err, model.ErrCredentialsNotConfigured)

	_, err = f.u.InitiateConnect(context.Background(), "u1", "myspace", "")
	assert.ErrorIs(t, err, model.ErrUnsupportedPlatform)
}

func TestOAuthUsecase_CallbackStoresSingleActiveConnection(t *testing.T) {
	f := newOAuthFixture(t)
	f.setupLinkedIn(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC()

	for i := 0; i < 2; i++ {
		state := f.begin(t)
		cb := model.CallbackParams{State: state, Code: fmt.Sprintf("code-%d", i)}
		f.linkedin.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(p *model.PendingAuthorization) bool {
			return p.State == state && p.CodeVerifier == "verifier" && p.OwnerID == "u1"
		}), cb).Return(&model.ExchangeResult{
			Material:          model.OAuth2Material{AccessToken: fmt.Sprintf("at-%d", i), RefreshToken: "rt", ExpiresAt: &exp},
			AccountIdentifier: "person-1",
		}, nil).Once()

		out, err := f.u.HandleCallback(ctx, "", "linkedin", cb)
		require.NoError(t, err)
		assert.Equal(t, "u1", out.OwnerID)
		assert.Equal(t, "/settings", out.ReturnURL)
		assert.Equal(t, model.ConnectionConnected, out.Status.State)
		assert.True(t, out.Status.Refreshable)
	}

	history := f.s.conns.History("u1", "linkedin")
	require.Len(t, history, 2)
	active := 0
	for _, c := range history {
		if c.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	conn, err := f.s.conns.GetActive(ctx, "u1", "linkedin")
	require.NoError(t, err)
	m, err := f.creds.LoadTokenMaterial(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, "at-1", m.(model.OAuth2Material).AccessToken)
	f.linkedin.AssertExpectations(t)
}

func TestOAuthUsecase_StateIsSingleUse(t *testing.T) {
	f := newOAuthFixture(t)
	f.setupLinkedIn(t)
	state := f.begin(t)
	cb := model.CallbackParams{State: state, Code: "c"}
	f.linkedin.On("Complete", mock.Anything, mock.Anything, mock.Anything, cb).
		Return(&model.ExchangeResult{Material: model.OAuth2Material{AccessToken: "at"}}, nil).Once()

	_, err := f.u.HandleCallback(context.Background(), "u1", "linkedin", cb)
	require.NoError(t, err)

	_, err = f.u.HandleCallback(context.Background(), "u1", "linkedin", cb)
	var perr *model.OAuthProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, model.OAuthInvalidState, perr.Kind)
}

func TestOAuthUsecase_CallbackRejectsForeignOwnerAndPlatform(t *testing.T) {
	f := newOAuthFixture(t)
	f.setupLinkedIn(t)

	state := f.begin(t)
	_, err := f.u.HandleCallback(context.Background(), "someone-else", "linkedin", model.CallbackParams{State: state, Code: "c"})
	var perr *model.OAuthProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, model.OAuthInvalidState, perr.Kind)

	state = f.begin(t)
	_, err = f.u.HandleCallback(context.Background(), "u1", "twitter", model.CallbackParams{State: state})
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, model.OAuthInvalidState, perr.Kind)
	f.linkedin.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOAuthUsecase_ProviderDenialLeavesNoConnection(t *testing.T) {
	f := newOAuthFixture(t)
	f.setupLinkedIn(t)
	state := f.begin(t)
	cb := model.CallbackParams{State: state, Error: "access_denied"}
	f.linkedin.On("Complete", mock.Anything, mock.Anything, mock.Anything, cb).
		Return(nil, model.NewOAuthProviderError(model.OAuthAccessDenied, "", nil)).Once()

	_, err := f.u.HandleCallback(context.Background(), "u1", "linkedin", cb)
	var perr *model.OAuthProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, model.OAuthAccessDenied, perr.Kind)

	st, err := f.u.Status(context.Background(), "u1", "linkedin")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionNotConnected, st.State)
}

func TestOAuthUsecase_RefreshRotatesTokens(t *testing.T) {
	f := newOAuthFixture(t)
	f.setupLinkedIn(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)
	connect(t, f.s, f.creds, "u1", "linkedin", model.OAuth2Material{AccessToken: "old", RefreshToken: "rt", ExpiresAt: &past})

	st, err := f.u.Status(ctx, "u1", "linkedin")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionExpired, st.State)

	next := time.Now().Add(time.Hour).UTC()
	f.linkedin.On("Refresh", mock.Anything, mock.Anything, mock.MatchedBy(func(m model.TokenMaterial) bool {
		o, ok := m.(model.OAuth2Material)
		return ok && o.AccessToken == "old" && o.RefreshToken == "rt"
	})).Return(model.OAuth2Material{AccessToken: "new", RefreshToken: "rt2", ExpiresAt: &next}, nil).Once()

	st, err = f.u.Refresh(ctx, "u1", "linkedin")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionConnected, st.State)

	conn, err := f.s.conns.GetActive(ctx, "u1", "linkedin")
	require.NoError(t, err)
	m, err := f.creds.LoadTokenMaterial(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, "new", m.(model.OAuth2Material).AccessToken)
	assert.Equal(t, "rt2", m.(model.OAuth2Material).RefreshToken)
}

func TestOAuthUsecase_RejectedRefreshDeactivates(t *testing.T) {
	f := newOAuthFixture(t)
	f.setupLinkedIn(t)
	ctx := context.Background()
	connect(t, f.s, f.creds, "u1", "linkedin", model.OAuth2Material{AccessToken: "old", RefreshToken: "rt"})
	f.linkedin.On("Refresh", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: invalid_grant", model.ErrConnectionExpiredOrRevoked)).Once()

	_, err := f.u.Refresh(ctx, "u1", "linkedin")
	assert.ErrorIs(t, err, model.ErrConnectionExpiredOrRevoked)

	_, err = f.s.conns.GetActive(ctx, "u1", "linkedin")
	assert.ErrorIs(t, err, model.ErrNotFound)
	history := f.s.conns.History("u1", "linkedin")
	require.Len(t, history, 1)
	assert.Equal(t, usecase.ReasonRefreshRejected, history[0].DeactivationReason)
}

func TestOAuthUsecase_RefreshNotSupportedForOAuth1(t *testing.T) {
	f := newOAuthFixture(t)
	connect(t, f.s, f.creds, "u1", "twitter", model.OAuth1Material{Token: "t", TokenSecret: "s"})

	_, err := f.u.Refresh(context.Background(), "u1", "twitter")
	assert.ErrorIs(t, err, model.ErrRefreshNotSupported)
	f.twitter.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything, mock.Anything)

	st, err := f.u.Status(context.Background(), "u1", "twitter")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionConnected, st.State)
	assert.False(t, st.Refreshable)
}

func TestOAuthUsecase_DisconnectIsIdempotent(t *testing.T) {
	f := newOAuthFixture(t)
	connect(t, f.s, f.creds, "u1", "twitter", model.OAuth1Material{Token: "t", TokenSecret: "s"})
	ctx := context.Background()

	require.NoError(t, f.u.Disconnect(ctx, "u1", "twitter"))
	require.NoError(t, f.u.Disconnect(ctx, "u1", "twitter"))

	st, err := f.u.Status(ctx, "u1", "twitter")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionNotConnected, st.State)
	history := f.s.conns.History("u1", "twitter")
	require.Len(t, history, 1)
	assert.Equal(t, usecase.ReasonDisconnected, history[0].DeactivationReason)
}
