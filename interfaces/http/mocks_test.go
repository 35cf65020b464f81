package http_test

import (
	"context"

	"newsroom/domain/model"

	"github.com/stretchr/testify/mock"
)

type MockGenerationUsecase struct {
	mock.Mock
}

func (m *MockGenerationUsecase) Submit(ctx context.Context, ownerID string, tier model.Tier, articleIDs, platforms []string) (string, error) {
	args := m.Called(ctx, ownerID, tier, articleIDs, platforms)
	return args.String(0), args.Error(1)
}

func (m *MockGenerationUsecase) Status(ctx context.Context, ownerID, jobID string) (*model.GenerationJob, error) {
	args := m.Called(ctx, ownerID, jobID)
	job, _ := args.Get(0).(*model.GenerationJob)
	return job, args.Error(1)
}

func (m *MockGenerationUsecase) Cancel(ctx context.Context, ownerID, jobID string) (*model.GenerationJob, error) {
	args := m.Called(ctx, ownerID, jobID)
	job, _ := args.Get(0).(*model.GenerationJob)
	return job, args.Error(1)
}

func (m *MockGenerationUsecase) Resubmit(ctx context.Context, ownerID string, tier model.Tier, jobID, platform string) (*model.GenerationJob, error) {
	args := m.Called(ctx, ownerID, tier, jobID, platform)
	job, _ := args.Get(0).(*model.GenerationJob)
	return job, args.Error(1)
}

func (m *MockGenerationUsecase) SweepStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockGenerationUsecase) Wait() { m.Called() }

func (m *MockGenerationUsecase) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockPublishUsecase struct {
	mock.Mock
}

func (m *MockPublishUsecase) Publish(ctx context.Context, ownerID string, tier model.Tier, postID string, platforms []string) (map[string]*model.PublishAttempt, error) {
	args := m.Called(ctx, ownerID, tier, postID, platforms)
	res, _ := args.Get(0).(map[string]*model.PublishAttempt)
	return res, args.Error(1)
}

func (m *MockPublishUsecase) Attempts(ctx context.Context, ownerID, postID string) ([]*model.PublishAttempt, error) {
	args := m.Called(ctx, ownerID, postID)
	res, _ := args.Get(0).([]*model.PublishAttempt)
	return res, args.Error(1)
}

type MockOAuthUsecase struct {
	mock.Mock
}

func (m *MockOAuthUsecase) InitiateConnect(ctx context.Context, ownerID, platform, returnURL string) (string, error) {
	args := m.Called(ctx, ownerID, platform, returnURL)
	return args.String(0), args.Error(1)
}

func (m *MockOAuthUsecase) HandleCallback(ctx context.Context, ownerID, platform string, params model.CallbackParams) (*model.CallbackOutcome, error) {
	args := m.Called(ctx, ownerID, platform, params)
	out, _ := args.Get(0).(*model.CallbackOutcome)
	return out, args.Error(1)
}

func (m *MockOAuthUsecase) Status(ctx context.Context, ownerID, platform string) (*model.ConnectionStatus, error) {
	args := m.Called(ctx, ownerID, platform)
	st, _ := args.Get(0).(*model.ConnectionStatus)
	return st, args.Error(1)
}

func (m *MockOAuthUsecase) Refresh(ctx context.Context, ownerID, platform string) (*model.ConnectionStatus, error) {
	args := m.Called(ctx, ownerID, platform)
	st, _ := args.Get(0).(*model.ConnectionStatus)
	return st, args.Error(1)
}

func (m *MockOAuthUsecase) Disconnect(ctx context.Context, ownerID, platform string) error {
	return m.Called(ctx, ownerID, platform).Error(0)
}

type MockCredentialUsecase struct {
	mock.Mock
}

func (m *MockCredentialUsecase) SaveAIKey(ctx context.Context, ownerID, provider, apiKey string) error {
	return m.Called(ctx, ownerID, provider, apiKey).Error(0)
}

func (m *MockCredentialUsecase) ResolveAIKey(ctx context.Context, ownerID string) (*model.AIKey, error) {
	args := m.Called(ctx, ownerID)
	k, _ := args.Get(0).(*model.AIKey)
	return k, args.Error(1)
}

func (m *MockCredentialUsecase) SaveSetup(ctx context.Context, ownerID, platform string, in model.SetupInput) (*model.AppCredentialSetup, error) {
	args := m.Called(ctx, ownerID, platform, in)
	s, _ := args.Get(0).(*model.AppCredentialSetup)
	return s, args.Error(1)
}

func (m *MockCredentialUsecase) GetSetup(ctx context.Context, ownerID, platform string) (*model.AppCredentialSetup, error) {
	args := m.Called(ctx, ownerID, platform)
	s, _ := args.Get(0).(*model.AppCredentialSetup)
	return s, args.Error(1)
}

func (m *MockCredentialUsecase) DeleteSetup(ctx context.Context, ownerID, platform string) error {
	return m.Called(ctx, ownerID, platform).Error(0)
}

func (m *MockCredentialUsecase) LoadAppCredentials(ctx context.Context, ownerID, platform string) (*model.AppCredentials, error) {
	args := m.Called(ctx, ownerID, platform)
	c, _ := args.Get(0).(*model.AppCredentials)
	return c, args.Error(1)
}

func (m *MockCredentialUsecase) StoreTokenMaterial(ctx context.Context, ownerID, platform string, tm model.TokenMaterial) (string, string, error) {
	args := m.Called(ctx, ownerID, platform, tm)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockCredentialUsecase) LoadTokenMaterial(ctx context.Context, conn *model.OAuthConnection) (model.TokenMaterial, error) {
	args := m.Called(ctx, conn)
	tm, _ := args.Get(0).(model.TokenMaterial)
	return tm, args.Error(1)
}

type MockQuotaUsecase struct {
	mock.Mock
}

func (m *MockQuotaUsecase) CheckAndReserve(ctx context.Context, ownerID string, tier model.Tier) (*model.QuotaDecision, error) {
	args := m.Called(ctx, ownerID, tier)
	d, _ := args.Get(0).(*model.QuotaDecision)
	return d, args.Error(1)
}

func (m *MockQuotaUsecase) Usage(ctx context.Context, ownerID string, tier model.Tier) (*model.QuotaDecision, error) {
	args := m.Called(ctx, ownerID, tier)
	d, _ := args.Get(0).(*model.QuotaDecision)
	return d, args.Error(1)
}

type MockReconcilerUsecase struct {
	mock.Mock
}

func (m *MockReconcilerUsecase) Health(ctx context.Context, ownerID, platform string) (*model.ConnectionHealth, error) {
	args := m.Called(ctx, ownerID, platform)
	h, _ := args.Get(0).(*model.ConnectionHealth)
	return h, args.Error(1)
}

func (m *MockReconcilerUsecase) HealthAll(ctx context.Context, ownerID string) ([]*model.ConnectionHealth, error) {
	args := m.Called(ctx, ownerID)
	h, _ := args.Get(0).([]*model.ConnectionHealth)
	return h, args.Error(1)
}

func (m *MockReconcilerUsecase) Resolve(ctx context.Context, ownerID, platform string) (*model.ConnectionHealth, *model.OAuthConnection, error) {
	args := m.Called(ctx, ownerID, platform)
	h, _ := args.Get(0).(*model.ConnectionHealth)
	c, _ := args.Get(1).(*model.OAuthConnection)
	return h, c, args.Error(2)
}

func (m *MockReconcilerUsecase) Platforms() []string {
	return m.Called().Get(0).([]string)
}
