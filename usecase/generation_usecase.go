package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const reasonCancelled = "cancelled"

type IGenerationUsecase interface {
	// Submit validates, reserves quota and returns the job id without waiting for any unit.
	Submit(ctx context.Context, ownerID string, tier model.Tier, articleIDs, platforms []string) (string, error)
	Status(ctx context.Context, ownerID, jobID string) (*model.GenerationJob, error)
	Cancel(ctx context.Context, ownerID, jobID string) (*model.GenerationJob, error)
	Resubmit(ctx context.Context, ownerID string, tier model.Tier, jobID, platform string) (*model.GenerationJob, error)
	// SweepStale refreshes the units this process is running, then fails in-flight units that
	// no worker has refreshed for twice the call timeout.
	SweepStale(ctx context.Context) (int, error)
	// Wait blocks until every unit started so far has finished.
	Wait()
	// Shutdown cancels running units and waits for them until ctx is done.
	Shutdown(ctx context.Context) error
}

type GenerationConfig struct {
	Concurrency  int
	CallTimeout  time.Duration
	DefaultModel string
}

type GenerationOption func(*generationUsecase)

// WithBroadcaster registers a sink for unit transitions.
func WithBroadcaster(fn func(model.StatusEvent)) GenerationOption {
	return func(u *generationUsecase) { u.broadcast = fn }
}

func WithGenerationClock(now func() time.Time) GenerationOption {
	return func(u *generationUsecase) { u.now = now }
}

// jobRun tracks the units of one job executing in this process, keyed by platform with
// the attempt being run.
type jobRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
	units  map[string]int
}

type generationUsecase struct {
	jobs        repository.IGenerationJob
	articles    repository.IArticle
	credentials ICredentialUsecase
	quota       IQuotaUsecase
	settings    ISettingsUsecase
	ai          repository.IAIProvider
	platforms   map[string]struct{}
	cfg         GenerationConfig
	broadcast   func(model.StatusEvent)
	now         func() time.Time

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	runsMu sync.Mutex
	runs   map[string]*jobRun
}

func NewGenerationUsecase(
	jobs repository.IGenerationJob,
	articles repository.IArticle,
	credentials ICredentialUsecase,
	quota IQuotaUsecase,
	settings ISettingsUsecase,
	ai repository.IAIProvider,
	platforms []string,
	cfg GenerationConfig,
	opts ...GenerationOption,
) IGenerationUsecase {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	base, stop := context.WithCancel(context.Background())
	u := &generationUsecase{
		jobs:        jobs,
		articles:    articles,
		credentials: credentials,
		quota:       quota,
		settings:    settings,
		ai:          ai,
		platforms:   platformSet(platforms),
		cfg:         cfg,
		broadcast:   func(model.StatusEvent) {},
		now:         func() time.Time { return time.Now().UTC() },
		base:        base,
		stop:        stop,
		runs:        map[string]*jobRun{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// unitWork is everything a unit needs to call the provider.
type unitWork struct {
	jobID    string
	ownerID  string
	platform string
	attempt  int
	prompt   string
	key      *model.AIKey
	model    string
}

func (u *generationUsecase) Submit(ctx context.Context, ownerID string, tier model.Tier, articleIDs, platforms []string) (string, error) {
	platforms, err := normalizePlatforms(platforms, u.platforms)
	if err != nil {
		return "", err
	}
	articleIDs = dedupe(articleIDs)
	if len(articleIDs) == 0 {
		return "", fmt.Errorf("%w: at least one article is required", model.ErrInvalidInput)
	}
	prompt, err := u.prompt(ctx, articleIDs)
	if err != nil {
		return "", err
	}
	key, err := u.credentials.ResolveAIKey(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if _, err := u.quota.CheckAndReserve(ctx, ownerID, tier); err != nil {
		return "", err
	}

	job := model.NewGenerationJob(uuid.NewString(), ownerID, articleIDs, platforms, u.now())
	if err := u.jobs.Save(ctx, job); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while saving generation job")
		return "", err
	}
	logger.GetLogger().WithField("job_id", job.ID).WithField("platforms", platforms).Info("Generation job queued")

	modelID := u.modelFor(ctx, key.Provider)
	units := make([]unitWork, 0, len(platforms))
	for _, p := range platforms {
		units = append(units, unitWork{jobID: job.ID, ownerID: ownerID, platform: p, attempt: 1, prompt: prompt, key: key, model: modelID})
	}
	u.launch(job.ID, units)
	return job.ID, nil
}

func (u *generationUsecase) Status(ctx context.Context, ownerID, jobID string) (*model.GenerationJob, error) {
	job, err := u.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: job %s", model.ErrNotFound, jobID)
	}
	return job, nil
}

// Cancel stops pending and generating units. Completed units keep their content.
func (u *generationUsecase) Cancel(ctx context.Context, ownerID, jobID string) (*model.GenerationJob, error) {
	job, err := u.Status(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		return job, nil
	}
	u.runsMu.Lock()
	if run, ok := u.runs[jobID]; ok {
		run.cancel()
	}
	u.runsMu.Unlock()

	updated, changed, err := u.update(ctx, jobID, func(j *model.GenerationJob) []string {
		var moved []string
		for name, p := range j.PerPlatform {
			if j.FailPlatform(name, p.Attempt, reasonCancelled, u.now()) {
				moved = append(moved, name)
			}
		}
		return moved
	})
	if err != nil {
		return nil, err
	}
	for _, name := range changed {
		u.emit(updated, name)
	}
	logger.GetLogger().WithField("job_id", jobID).WithField("units", len(changed)).Info("Generation job cancelled")
	return updated, nil
}

func (u *generationUsecase) Resubmit(ctx context.Context, ownerID string, tier model.Tier, jobID, platform string) (*model.GenerationJob, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	job, err := u.Status(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	p, ok := job.PerPlatform[platform]
	if !ok {
		return nil, fmt.Errorf("%w: platform %s is not part of job %s", model.ErrInvalidInput, platform, jobID)
	}
	if p.InFlight() {
		return nil, fmt.Errorf("%w: platform %s is still %s", model.ErrConflict, platform, p.Status)
	}
	prompt, err := u.prompt(ctx, job.ArticleIDs)
	if err != nil {
		return nil, err
	}
	key, err := u.credentials.ResolveAIKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := u.quota.CheckAndReserve(ctx, ownerID, tier); err != nil {
		return nil, err
	}

	var attempt int
	var resetErr error
	updated, changed, err := u.update(ctx, jobID, func(j *model.GenerationJob) []string {
		attempt, resetErr = j.ResetPlatform(platform, u.now())
		if resetErr != nil {
			return nil
		}
		return []string{platform}
	})
	if err != nil {
		return nil, err
	}
	if resetErr != nil {
		return nil, resetErr
	}
	for _, name := range changed {
		u.emit(updated, name)
	}
	u.launch(jobID, []unitWork{{
		jobID: jobID, ownerID: ownerID, platform: platform, attempt: attempt,
		prompt: prompt, key: key, model: u.modelFor(ctx, key.Provider),
	}})
	return updated, nil
}

func (u *generationUsecase) SweepStale(ctx context.Context) (int, error) {
	u.heartbeat(ctx)

	active, err := u.jobs.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := u.now().Add(-2 * u.cfg.CallTimeout)
	stale := func(jobID, name string, p *model.PlatformProgress) bool {
		return p.InFlight() && p.UpdatedAt.Before(cutoff) && !u.ownsUnit(jobID, name, p.Attempt)
	}
	swept := 0
	for _, job := range active {
		found := false
		for name, p := range job.PerPlatform {
			if stale(job.ID, name, p) {
				found = true
			}
		}
		if !found {
			continue
		}
		updated, changed, err := u.update(ctx, job.ID, func(j *model.GenerationJob) []string {
			var moved []string
			for name, p := range j.PerPlatform {
				if stale(j.ID, name, p) && j.FailPlatform(name, p.Attempt, "timed out", u.now()) {
					moved = append(moved, name)
				}
			}
			return moved
		})
		if err != nil {
			logger.GetLogger().WithField("error", err).WithField("job_id", job.ID).Error("Error while sweeping job")
			continue
		}
		for _, name := range changed {
			u.emit(updated, name)
		}
		swept += len(changed)
	}
	if swept > 0 {
		logger.GetLogger().WithField("units", swept).Warn("Swept stale generation units")
	}
	return swept, nil
}

// heartbeat moves UpdatedAt forward on every unit this process is running or has queued.
func (u *generationUsecase) heartbeat(ctx context.Context) {
	u.runsMu.Lock()
	owned := make(map[string]map[string]int, len(u.runs))
	for jobID, run := range u.runs {
		units := make(map[string]int, len(run.units))
		for platform, attempt := range run.units {
			units[platform] = attempt
		}
		owned[jobID] = units
	}
	u.runsMu.Unlock()

	for jobID, units := range owned {
		_, _, err := u.update(ctx, jobID, func(j *model.GenerationJob) []string {
			var touched []string
			for platform, attempt := range units {
				if j.TouchPlatform(platform, attempt, u.now()) {
					touched = append(touched, platform)
				}
			}
			return touched
		})
		if err != nil {
			logger.GetLogger().WithField("error", err).WithField("job_id", jobID).Warn("Error while refreshing running units")
		}
	}
}

func (u *generationUsecase) Wait() { u.wg.Wait() }

func (u *generationUsecase) Shutdown(ctx context.Context) error {
	u.stop()
	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch runs units in the background, at most cfg.Concurrency at a time per batch.
func (u *generationUsecase) launch(jobID string, units []unitWork) {
	run := u.acquire(jobID, units)
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer u.release(jobID, run)
		g := new(errgroup.Group)
		g.SetLimit(u.cfg.Concurrency)
		for _, w := range units {
			g.Go(func() error {
				u.runUnit(run.ctx, w)
				u.finish(run, w)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (u *generationUsecase) acquire(jobID string, units []unitWork) *jobRun {
	u.runsMu.Lock()
	defer u.runsMu.Unlock()
	run, ok := u.runs[jobID]
	if !ok || run.ctx.Err() != nil {
		ctx, cancel := context.WithCancel(u.base)
		run = &jobRun{ctx: ctx, cancel: cancel, units: map[string]int{}}
		u.runs[jobID] = run
	}
	for _, w := range units {
		run.units[w.platform] = w.attempt
	}
	run.refs++
	return run
}

func (u *generationUsecase) finish(run *jobRun, w unitWork) {
	u.runsMu.Lock()
	defer u.runsMu.Unlock()
	if run.units[w.platform] == w.attempt {
		delete(run.units, w.platform)
	}
}

func (u *generationUsecase) release(jobID string, run *jobRun) {
	u.runsMu.Lock()
	defer u.runsMu.Unlock()
	run.refs--
	if run.refs > 0 {
		return
	}
	run.cancel()
	if u.runs[jobID] == run {
		delete(u.runs, jobID)
	}
}

func (u *generationUsecase) ownsUnit(jobID, platform string, attempt int) bool {
	u.runsMu.Lock()
	defer u.runsMu.Unlock()
	run, ok := u.runs[jobID]
	if !ok {
		return false
	}
	a, ok := run.units[platform]
	return ok && a == attempt
}

func (u *generationUsecase) runUnit(ctx context.Context, w unitWork) {
	log := logger.GetLogger().WithField("job_id", w.jobID).WithField("platform", w.platform).WithField("attempt", w.attempt)
	if ctx.Err() != nil {
		u.transition(w, func(j *model.GenerationJob) bool {
			return j.FailPlatform(w.platform, w.attempt, reasonCancelled, u.now())
		})
		return
	}
	if !u.transition(w, func(j *model.GenerationJob) bool {
		return j.StartPlatform(w.platform, w.attempt, u.now())
	}) {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, u.cfg.CallTimeout)
	text, err := u.ai.Generate(callCtx, model.GenerationRequest{
		Prompt:   w.prompt,
		Platform: w.platform,
		Provider: w.key.Provider,
		Model:    w.model,
		APIKey:   w.key.APIKey,
	})
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()

	text = strings.TrimSpace(text)
	var reason string
	switch {
	case ctx.Err() != nil:
		reason = reasonCancelled
	case err != nil && timedOut:
		reason = fmt.Sprintf("timed out after %s", u.cfg.CallTimeout)
	case err != nil:
		reason = err.Error()
	case text == "":
		reason = "provider returned empty content"
	}
	if reason != "" {
		log.WithField("reason", reason).Warn("Generation unit failed")
		u.transition(w, func(j *model.GenerationJob) bool {
			return j.FailPlatform(w.platform, w.attempt, reason, u.now())
		})
		return
	}
	if u.transition(w, func(j *model.GenerationJob) bool {
		return j.CompletePlatform(w.platform, w.attempt, text, u.now())
	}) {
		log.Info("Generation unit completed")
	}
}

// transition applies fn to the stored job and reports whether the unit moved.
func (u *generationUsecase) transition(w unitWork, fn func(j *model.GenerationJob) bool) bool {
	updated, changed, err := u.update(u.base, w.jobID, func(j *model.GenerationJob) []string {
		if fn(j) {
			return []string{w.platform}
		}
		return nil
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("job_id", w.jobID).Error("Error while updating generation job")
		return false
	}
	if len(changed) == 0 {
		return false
	}
	u.emit(updated, w.platform)
	return true
}

// update is an atomic read-modify-write of one job. fn returns the platforms it changed;
// nothing is written when it returns none.
func (u *generationUsecase) update(ctx context.Context, jobID string, fn func(j *model.GenerationJob) []string) (*model.GenerationJob, []string, error) {
	var changed []string
	job, err := u.jobs.Update(context.WithoutCancel(ctx), jobID, func(j *model.GenerationJob) bool {
		changed = fn(j)
		return len(changed) > 0
	})
	if err != nil {
		return nil, nil, err
	}
	return job, changed, nil
}

func (u *generationUsecase) emit(job *model.GenerationJob, platform string) {
	p := job.PerPlatform[platform]
	if p == nil {
		return
	}
	msg := p.Message
	if p.Error != "" {
		msg = p.Error
	}
	u.broadcast(model.StatusEvent{
		Type:      model.EventGenerationStatus,
		OwnerID:   job.OwnerID,
		JobID:     job.ID,
		Platform:  platform,
		Status:    string(p.Status),
		JobStatus: job.Status,
		Progress:  p.Progress,
		Message:   msg,
		At:        p.UpdatedAt,
	})
}

func (u *generationUsecase) prompt(ctx context.Context, articleIDs []string) (string, error) {
	articles, err := u.articles.GetByIDs(ctx, articleIDs)
	if err != nil {
		return "", err
	}
	found := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		found[a.ID] = struct{}{}
	}
	var missing []string
	for _, id := range articleIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: articles %s", model.ErrNotFound, strings.Join(missing, ", "))
	}
	return buildPrompt(articles), nil
}

func buildPrompt(articles []model.Article) string {
	var b strings.Builder
	b.WriteString("Write a social post covering the following articles.\n")
	for i, a := range articles {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, a.Title)
		if a.Summary != "" {
			b.WriteString(a.Summary)
			b.WriteString("\n")
		}
		if a.Source != "" {
			fmt.Fprintf(&b, "Source: %s\n", a.Source)
		}
		if a.URL != "" {
			fmt.Fprintf(&b, "Link: %s\n", a.URL)
		}
	}
	return b.String()
}

func (u *generationUsecase) modelFor(ctx context.Context, provider string) string {
	s, err := u.settings.Get(ctx)
	if err != nil || s.DefaultAIModel == "" {
		return u.cfg.DefaultModel
	}
	if s.DefaultAIProvider != "" && !strings.EqualFold(s.DefaultAIProvider, provider) {
		return u.cfg.DefaultModel
	}
	return s.DefaultAIModel
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
