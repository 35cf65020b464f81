package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"newsroom/domain/model"
	"newsroom/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []model.StatusEvent
}

func (l *eventLog) add(e model.StatusEvent) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) forPlatform(platform string) []model.StatusEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.StatusEvent
	for _, e := range l.events {
		if e.Platform == platform {
			out = append(out, e)
		}
	}
	return out
}

type generationFixture struct {
	s      *stores
	ai     *MockAIProvider
	events *eventLog
	u      usecase.IGenerationUsecase
}

func newGenerationFixture(t *testing.T, timeout time.Duration) *generationFixture {
	s := newStores()
	creds := s.credentialUsecase(t)
	require.NoError(t, creds.SaveAIKey(context.Background(), "u1", "openai", "sk-test"))
	f := &generationFixture{s: s, ai: new(MockAIProvider), events: &eventLog{}}
	f.u = usecase.NewGenerationUsecase(
		s.jobs, s.articles, creds, s.quotaUsecase(), usecase.NewSettingsUsecase(s.settings), f.ai,
		testPlatforms,
		usecase.GenerationConfig{Concurrency: 2, CallTimeout: timeout},
		usecase.WithBroadcaster(f.events.add),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.u.Shutdown(ctx)
	})
	return f
}

func forPlatform(platform string) interface{} {
	return mock.MatchedBy(func(req model.GenerationRequest) bool { return req.Platform == platform })
}

// blockUntilCancelled makes the provider hang until its context ends.
func blockUntilCancelled(args mock.Arguments) {
	<-args.Get(0).(context.Context).Done()
}

func TestGenerationUsecase_SubmitCompletesAllPlatforms(t *testing.T) {
	f := newGenerationFixture(t, time.Second)
	f.ai.On("Generate", mock.Anything, mock.MatchedBy(func(req model.GenerationRequest) bool {
		return req.Platform == "twitter" && req.APIKey == "sk-test" && req.Provider == "openai"
	})).Return("Budget passed. #city", nil).Once()
	f.ai.On("Generate", mock.Anything, forPlatform("linkedin")).Return("  The council approved the budget.  ", nil).Once()

	id, err := f.u.Submit(context.Background(), "u1", model.TierFree, []string{"a1", "a2", "a1"}, []string{"Twitter", "linkedin"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	f.u.Wait()

	job, err := f.u.Status(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, []string{"a1", "a2"}, job.ArticleIDs)
	assert.NotNil(t, job.CompletedAt)
	content, ok := job.Content("linkedin")
	assert.True(t, ok)
	assert.Equal(t, "The council approved the budget.", content)
	assert.Equal(t, 100, job.PerPlatform["twitter"].Progress)

	events := f.events.forPlatform("twitter")
	require.Len(t, events, 2)
	assert.Equal(t, string(model.PlatformGenerating), events[0].Status)
	assert.Equal(t, 10, events[0].Progress)
	assert.Equal(t, string(model.PlatformCompleted), events[1].Status)
	assert.Equal(t, "u1", events[1].OwnerID)

	rec, err := f.s.quota.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.DailyUsed)
	f.ai.AssertExpectations(t)
}

func TestGenerationUsecase_PartialFailure(t *testing.T) {
	f := newGenerationFixture(t, time.Second)
	f.ai.On("Generate", mock.Anything, forPlatform("twitter")).Return("ok", nil)
	f.ai.On("Generate", mock.Anything, forPlatform("linkedin")).Return("", &model.ProviderError{Provider: "openai", Err: errors.New("rate limited")})
	f.ai.On("Generate", mock.Anything, forPlatform("mastodon")).Return("   ", nil)

	id, err := f.u.Submit(context.Background(), "u1", model.TierFree, []string{"a1"}, []string{"twitter", "linkedin", "mastodon"})
	require.NoError(t, err)
	f.u.Wait()

	job, err := f.u.Status(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Equal(t, model.PlatformCompleted, job.PerPlatform["twitter"].Status)
	assert.Equal(t, model.PlatformError, job.PerPlatform["linkedin"].Status)
	assert.Contains(t, job.PerPlatform["linkedin"].Error, "rate limited")
	assert.Equal(t, model.PlatformError, job.PerPlatform["mastodon"].Status)
	assert.Contains(t, job.ErrorMessage, "linkedin:")
}

func TestGenerationUsecase_PreconditionsDoNotConsumeQuota(t *testing.T) {
	f := newGenerationFixture(t, time.Second)
	ctx := context.Background()

	_, err := f.u.Submit(ctx, "u1", model.TierFree, []string{"a1"}, []string{"myspace"})
	assert.ErrorIs(t, err, model.ErrUnsupportedPlatform)

	_, err = f.u.Submit(ctx, "u1", model.TierFree, []string{"a1"}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = f.u.Submit(ctx, "u1", model.TierFree, []string{"a1", "missing"}, []string{"twitter"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), "missing")

	_, err = f.u.Submit(ctx, "no-key", model.TierFree, []string{"a1"}, []string{"twitter"})
	assert.ErrorIs(t, err, model.ErrCredentialsNotConfigured)

	_, err = f.s.quota.Get(ctx, "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.s.quota.Get(ctx, "no-key")
	assert.ErrorIs(t, err, model.ErrNotFound)
	f.ai.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerationUsecase_QuotaExceeded(t *testing.T) {
	f := newGenerationFixture(t, time.Second)
	f.s.settings.Set(&model.Settings{TierLimits: map[model.Tier]int{model.TierFree: 1}})
	f.ai.On("Generate", mock.Anything, mock.Anything).Return("ok", nil)

	_, err := f.u.Submit(context.Background(), "u1", model.TierFree, []string{"a1"}, []string{"twitter"})
	require.NoError(t, err)
	_, err = f.u.Submit(context.Background(), "u1", model.TierFree, []string{"a1"}, []string{"twitter"})
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	f.u.Wait()
	f.ai.AssertNumberOfCalls(t, "Generate", 1)
}

func TestGenerationUsecase_CancelStopsInFlightUnits(t *testing.T) {
	f := newGenerationFixture(t, 5*time.Second)
	f.ai.On("Generate", mock.Anything, forPlatform("twitter")).Return("done", nil)
	f.ai.On("Generate", mock.Anything, forPlatform("linkedin")).Run(blockUntilCancelled).Return("late", nil)
	ctx := context.Background()

	id, err := f.u.Submit(ctx, "u1", model.TierFree, []string{"a1"}, []string{"twitter", "linkedin"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, err := f.u.Status(ctx, "u1", id)
		return err == nil && job.PerPlatform["twitter"].Status == model.PlatformCompleted &&
			job.PerPlatform["linkedin"].Status == model.PlatformGenerating
	}, 2*time.Second, 10*time.Millisecond)

	job, err := f.u.Cancel(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.PlatformError, job.PerPlatform["linkedin"].Status)
	assert.Equal(t, "cancelled", job.PerPlatform["linkedin"].Error)
	assert.Equal(t, model.PlatformCompleted, job.PerPlatform["twitter"].Status)
	assert.Equal(t, model.JobFailed, job.Status)

	f.u.Wait()
	job, err = f.u.Status(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", job.PerPlatform["linkedin"].Error)
	assert.Empty(t, job.PerPlatform["linkedin"].Content)
}

func TestGenerationUsecase_CallTimeout(t *testing.T) {
	f := newGenerationFixture(t, 50*time.Millisecond)
	f.ai.On("Generate", mock.Anything, mock.Anything).Run(blockUntilCancelled).Return("", context.DeadlineExceeded)

	id, err := f.u.Submit(context.Background(), "u1", model.TierFree, []string{"a1"}, []string{"twitter"})
	require.NoError(t, err)
	f.u.Wait()

	job, err := f.u.Status(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Contains(t, job.PerPlatform["twitter"].Error, "timed out")
}

func TestGenerationUsecase_Resubmit(t *testing.T) {
	f := newGenerationFixture(t, time.Second)
	ctx := context.Background()
	f.ai.On("Generate", mock.Anything, forPlatform("twitter")).Return("", errors.New("boom")).Once()

	id, err := f.u.Submit(ctx, "u1", model.TierFree, []string{"a1"}, []string{"twitter"})
	require.NoError(t, err)
	f.u.Wait()

	f.ai.On("Generate", mock.Anything, forPlatform("twitter")).Return("second try", nil).Once()
	job, err := f.u.Resubmit(ctx, "u1", model.TierFree, id, "twitter")
	require.NoError(t, err)
	assert.Equal(t, 2, job.PerPlatform["twitter"].Attempt)
	f.u.Wait()

	job, err = f.u.Status(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	content, _ := job.Content("twitter")
	assert.Equal(t, "second try", content)

	rec, err := f.s.quota.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.DailyUsed)

	_, err = f.u.Resubmit(ctx, "u1", model.TierFree, id, "linkedin")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = f.u.Resubmit(ctx, "u2", model.TierFree, id, "twitter")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGenerationUsecase_ResubmitInFlightConflicts(t *testing.T) {
	f := newGenerationFixture(t, 5*time.Second)
	ctx := context.Background()
	f.ai.On("Generate", mock.Anything, mock.Anything).Run(blockUntilCancelled).Return("", context.Canceled)

	id, err := f.u.Submit(ctx, "u1", model.TierFree, []string{"a1"}, []string{"twitter"})
	require.NoError(t, err)

	_, err = f.u.Resubmit(ctx, "u1", model.TierFree, id, "twitter")
	assert.ErrorIs(t, err, model.ErrConflict)
	rec, err := f.s.quota.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.DailyUsed)
}

func TestGenerationUsecase_SweepStale(t *testing.T) {
	f := newGenerationFixture(t, time.Second)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := model.NewGenerationJob("stale", "u1", []string{"a1"}, []string{"twitter", "linkedin"}, now.Add(-time.Hour))
	stale.StartPlatform("twitter", 1, now.Add(-time.Hour))
	stale.PerPlatform["linkedin"].UpdatedAt = now
	require.NoError(t, f.s.jobs.Save(ctx, stale))

	fresh := model.NewGenerationJob("fresh", "u1", []string{"a1"}, []string{"twitter"}, now)
	require.NoError(t, f.s.jobs.Save(ctx, fresh))

	n, err := f.u.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := f.u.Status(ctx, "u1", "stale")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformError, job.PerPlatform["twitter"].Status)
	assert.Equal(t, "timed out", job.PerPlatform["twitter"].Error)
	assert.Equal(t, model.PlatformPending, job.PerPlatform["linkedin"].Status)

	job, err = f.u.Status(ctx, "u1", "fresh")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformPending, job.PerPlatform["twitter"].Status)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Two usecases over the same stores stand in for two processes sharing Redis.
func TestGenerationUsecase_SweepSparesUnitsRefreshedByTheirWorker(t *testing.T) {
	ctx := context.Background()
	s := newStores()
	creds := s.credentialUsecase(t)
	require.NoError(t, creds.SaveAIKey(ctx, "u1", "openai", "sk-test"))
	clock := &testClock{t: time.Now().UTC()}
	ai := new(MockAIProvider)
	ai.On("Generate", mock.Anything, mock.Anything).Run(blockUntilCancelled).Return("", context.Canceled)

	newInstance := func() usecase.IGenerationUsecase {
		u := usecase.NewGenerationUsecase(
			s.jobs, s.articles, creds, s.quotaUsecase(), usecase.NewSettingsUsecase(s.settings), ai,
			testPlatforms,
			usecase.GenerationConfig{Concurrency: 1, CallTimeout: time.Minute},
			usecase.WithGenerationClock(clock.now),
		)
		t.Cleanup(func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = u.Shutdown(sctx)
		})
		return u
	}
	worker, other := newInstance(), newInstance()

	id, err := worker.Submit(ctx, "u1", model.TierFree, []string{"a1"}, []string{"twitter", "linkedin"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, err := worker.Status(ctx, "u1", id)
		if err != nil {
			return false
		}
		generating, pending := 0, 0
		for _, p := range job.PerPlatform {
			switch p.Status {
			case model.PlatformGenerating:
				generating++
			case model.PlatformPending:
				pending++
			}
		}
		return generating == 1 && pending == 1
	}, 2*time.Second, 10*time.Millisecond)

	clock.advance(time.Hour)
	n, err := worker.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = other.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "queued and running units were refreshed by their worker")

	clock.advance(time.Hour)
	n, err = other.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	job, err := other.Status(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, job.Status)
	for _, p := range job.PerPlatform {
		assert.Equal(t, "timed out", p.Error)
	}
}
