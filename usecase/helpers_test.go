package usecase_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"newsroom/domain/model"
	"newsroom/infrastructure/persistence/memory"
	"newsroom/infrastructure/vault"
	"newsroom/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPlatforms = []string{"facebook", "linkedin", "mastodon", "twitter"}

type MockAIProvider struct {
	mock.Mock
}

func (m *MockAIProvider) Generate(ctx context.Context, req model.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, req model.PublishRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockOAuthFlow struct {
	mock.Mock
	platform string
	protocol model.ProtocolVersion
	setup    bool
	static   *model.AppCredentials
}

func (m *MockOAuthFlow) Platform() string                { return m.platform }
func (m *MockOAuthFlow) Protocol() model.ProtocolVersion { return m.protocol }
func (m *MockOAuthFlow) RequiresAppSetup() bool          { return m.setup }

func (m *MockOAuthFlow) StaticCredentials() (*model.AppCredentials, bool) {
	if m.static == nil {
		return nil, false
	}
	cp := *m.static
	return &cp, true
}

func (m *MockOAuthFlow) Begin(ctx context.Context, app model.AppCredentials, state string) (*model.AuthorizationStart, error) {
	args := m.Called(ctx, app, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthorizationStart), args.Error(1)
}

func (m *MockOAuthFlow) Complete(ctx context.Context, app model.AppCredentials, pending *model.PendingAuthorization, cb model.CallbackParams) (*model.ExchangeResult, error) {
	args := m.Called(ctx, app, pending, cb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExchangeResult), args.Error(1)
}

func (m *MockOAuthFlow) Refresh(ctx context.Context, app model.AppCredentials, material model.TokenMaterial) (model.TokenMaterial, error) {
	args := m.Called(ctx, app, material)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.TokenMaterial), args.Error(1)
}

func newOAuth2Flow(platform string) *MockOAuthFlow {
	return &MockOAuthFlow{platform: platform, protocol: model.ProtocolOAuth2, setup: true}
}

func newOAuth1Flow(platform string) *MockOAuthFlow {
	return &MockOAuthFlow{
		platform: platform,
		protocol: model.ProtocolOAuth1,
		static:   &model.AppCredentials{ClientID: "ck", ClientSecret: "cs", RedirectURI: "http://localhost/cb"},
	}
}

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	v, err := vault.New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	return v
}

// stores bundles in-memory repositories behind the usecases under test.
type stores struct {
	creds    *memory.CredentialStore
	setups   *memory.SetupStore
	conns    *memory.ConnectionStore
	states   *memory.StateStore
	quota    *memory.QuotaStore
	settings *memory.SettingsStore
	jobs     *memory.JobStore
	articles *memory.ArticleStore
	attempts *memory.AttemptStore
}

func newStores() *stores {
	defaults := model.DefaultSettings()
	return &stores{
		creds:    memory.NewCredentialStore(),
		setups:   memory.NewSetupStore(),
		conns:    memory.NewConnectionStore(),
		states:   memory.NewStateStore(),
		quota:    memory.NewQuotaStore(),
		settings: memory.NewSettingsStore(&defaults),
		jobs:     memory.NewJobStore(),
		articles: memory.NewArticleStore(
			model.Article{ID: "a1", Title: "Council passes budget", Summary: "The city council approved the budget.", URL: "https://example.com/a1"},
			model.Article{ID: "a2", Title: "Storm warning", Summary: "Heavy rain expected.", URL: "https://example.com/a2"},
		),
		attempts: memory.NewAttemptStore(),
	}
}

func (s *stores) credentialUsecase(t *testing.T) usecase.ICredentialUsecase {
	return usecase.NewCredentialUsecase(newTestVault(t), s.creds, s.setups, testPlatforms)
}

func (s *stores) quotaUsecase() usecase.IQuotaUsecase {
	return usecase.NewQuotaUsecase(s.quota, usecase.NewSettingsUsecase(s.settings), model.DefaultSettings())
}

// connect stores token material and an active connection the way a completed callback would.
func connect(t *testing.T, s *stores, creds usecase.ICredentialUsecase, owner, platform string, m model.TokenMaterial) *model.OAuthConnection {
	t.Helper()
	ctx := context.Background()
	accessRef, secondaryRef, err := creds.StoreTokenMaterial(ctx, owner, platform, m)
	require.NoError(t, err)
	_, _, expiresAt := model.SplitTokenMaterial(m)
	now := time.Now().UTC()
	conn := &model.OAuthConnection{
		OwnerID:           owner,
		Platform:          platform,
		ProtocolVersion:   m.Protocol(),
		AccessTokenRef:    accessRef,
		SecondaryTokenRef: secondaryRef,
		AccountIdentifier: platform + "-account",
		ExpiresAt:         expiresAt,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, s.conns.ReplaceActive(ctx, conn))
	return conn
}
