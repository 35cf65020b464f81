package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/logger"

	"golang.org/x/sync/errgroup"
)

const maxAttemptMessage = 500

type IPublishUsecase interface {
	// Publish dispatches the generated content of post postID to each platform independently.
	// Only a whole-call precondition failure returns an error; per-platform failures are results.
	Publish(ctx context.Context, ownerID string, tier model.Tier, postID string, platforms []string) (map[string]*model.PublishAttempt, error)
	Attempts(ctx context.Context, ownerID, postID string) ([]*model.PublishAttempt, error)
}

type PublishOption func(*publishUsecase)

func WithPublishBroadcaster(fn func(model.StatusEvent)) PublishOption {
	return func(u *publishUsecase) { u.broadcast = fn }
}

func WithPublishClock(now func() time.Time) PublishOption {
	return func(u *publishUsecase) { u.now = now }
}

type publishUsecase struct {
	jobs        repository.IGenerationJob
	reconciler  IReconcilerUsecase
	credentials ICredentialUsecase
	conns       repository.IOAuthConnection
	attempts    repository.IPublishAttempt
	publishers  map[model.PublisherKey]repository.IPublisher
	quota       IQuotaUsecase
	timeout     time.Duration
	broadcast   func(model.StatusEvent)
	now         func() time.Time
}

func NewPublishUsecase(
	jobs repository.IGenerationJob,
	reconciler IReconcilerUsecase,
	credentials ICredentialUsecase,
	conns repository.IOAuthConnection,
	attempts repository.IPublishAttempt,
	publishers map[model.PublisherKey]repository.IPublisher,
	quota IQuotaUsecase,
	timeout time.Duration,
	opts ...PublishOption,
) IPublishUsecase {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	u := &publishUsecase{
		jobs:        jobs,
		reconciler:  reconciler,
		credentials: credentials,
		conns:       conns,
		attempts:    attempts,
		publishers:  publishers,
		quota:       quota,
		timeout:     timeout,
		broadcast:   func(model.StatusEvent) {},
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// dispatch is one platform that passed preflight.
type dispatch struct {
	platform  string
	connID    int64
	protocol  model.ProtocolVersion
	publisher repository.IPublisher
	request   model.PublishRequest
}

func (u *publishUsecase) Publish(ctx context.Context, ownerID string, tier model.Tier, postID string, platforms []string) (map[string]*model.PublishAttempt, error) {
	platforms, err := normalizePlatforms(platforms, platformSet(u.reconciler.Platforms()))
	if err != nil {
		return nil, err
	}
	job, err := u.jobs.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: post %s", model.ErrNotFound, postID)
	}

	results := make(map[string]*model.PublishAttempt, len(platforms))
	var ready []dispatch
	for _, platform := range platforms {
		d, failed, err := u.preflight(ctx, ownerID, job, platform)
		if err != nil {
			return nil, err
		}
		if failed != nil {
			results[platform] = failed
			continue
		}
		ready = append(ready, *d)
	}

	if len(ready) > 0 {
		if _, err := u.quota.CheckAndReserve(ctx, ownerID, tier); err != nil {
			return nil, err
		}
		var mu sync.Mutex
		g := new(errgroup.Group)
		for _, d := range ready {
			g.Go(func() error {
				attempt := u.send(ctx, ownerID, postID, d)
				mu.Lock()
				results[d.platform] = attempt
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, platform := range platforms {
		u.record(ctx, results[platform])
	}
	return results, nil
}

// preflight resolves the connection, content, publisher and tokens for one platform. A
// non-nil attempt means the platform failed without calling the provider.
func (u *publishUsecase) preflight(ctx context.Context, ownerID string, job *model.GenerationJob, platform string) (*dispatch, *model.PublishAttempt, error) {
	now := u.now()
	health, conn, err := u.reconciler.Resolve(ctx, ownerID, platform)
	if err != nil {
		return nil, nil, err
	}
	fail := func(class model.ErrorClass, msg string) (*dispatch, *model.PublishAttempt, error) {
		return nil, model.FailedAttempt(ownerID, job.ID, platform, health.ProtocolVersion, class, msg, now), nil
	}
	switch health.State {
	case model.HealthConnected:
	case model.HealthConnectedExpired:
		return fail(model.ErrorClassAuth, "connection expired, refresh or reconnect")
	default:
		return fail(model.ErrorClassAuth, "platform is not connected")
	}

	content, ok := job.Content(platform)
	if !ok {
		return fail(model.ErrorClassPermanent, "no generated content for this platform")
	}
	key := model.PublisherKey{Platform: platform, Protocol: conn.ProtocolVersion}
	pub, ok := u.publishers[key]
	if !ok {
		return fail(model.ErrorClassPermanent, "no publisher for "+key.String())
	}
	tokens, err := u.credentials.LoadTokenMaterial(ctx, conn)
	if err != nil {
		var decErr *model.DecryptError
		if errors.As(err, &decErr) {
			return fail(model.ErrorClassPermanent, "stored credential corrupt")
		}
		return fail(model.ClassifyPublishError(err), truncate(err.Error()))
	}
	return &dispatch{
		platform:  platform,
		connID:    conn.ID,
		protocol:  conn.ProtocolVersion,
		publisher: pub,
		request:   model.PublishRequest{Tokens: tokens, AccountIdentifier: conn.AccountIdentifier, Content: content},
	}, nil, nil
}

func (u *publishUsecase) send(ctx context.Context, ownerID, postID string, d dispatch) *model.PublishAttempt {
	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	externalID, err := d.publisher.Publish(callCtx, d.request)
	now := u.now()
	if err == nil && externalID == "" {
		err = fmt.Errorf("%w: provider returned no post id", model.ErrInvalidInput)
	}
	if err == nil {
		return model.SucceededAttempt(ownerID, postID, d.platform, d.protocol, externalID, now)
	}

	class := model.ClassifyPublishError(err)
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("timed out after %s", u.timeout)
	}
	log := logger.GetLogger().WithField("platform", d.platform).WithField("class", class).WithField("error", err)
	var httpErr *model.ProviderHTTPError
	if errors.As(err, &httpErr) {
		log = log.WithField("provider_body", httpErr.Body)
		if httpErr.RetryAfter > 0 {
			msg = fmt.Sprintf("%s (retry after %s)", msg, httpErr.RetryAfter)
		}
	}
	log.Warn("Publish attempt failed")

	if class == model.ErrorClassAuth {
		// The platform rejected the token; the owner has to reconnect. Only the row whose
		// token was sent is revoked, a reconnect made meanwhile stays active.
		if _, derr := u.conns.DeactivateByID(context.WithoutCancel(ctx), d.connID, ReasonPublishUnauthorized, now); derr != nil {
			logger.GetLogger().WithField("error", derr).Error("Error while deactivating connection")
		}
	}
	return model.FailedAttempt(ownerID, postID, d.platform, d.protocol, class, truncate(msg), now)
}

func (u *publishUsecase) record(ctx context.Context, a *model.PublishAttempt) {
	if a == nil {
		return
	}
	if err := u.attempts.Insert(context.WithoutCancel(ctx), a); err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", a.Platform).Error("Error while recording publish attempt")
	}
	u.broadcast(model.StatusEvent{
		Type:       model.EventPublishStatus,
		OwnerID:    a.OwnerID,
		PostID:     a.PostID,
		Platform:   a.Platform,
		Status:     string(a.Status),
		ErrorClass: a.ErrorClass,
		Message:    a.ErrorMessage,
		ExternalID: a.PublishedExternalID,
		At:         a.AttemptedAt,
	})
}

func (u *publishUsecase) Attempts(ctx context.Context, ownerID, postID string) ([]*model.PublishAttempt, error) {
	return u.attempts.ListByPost(ctx, ownerID, postID)
}

// truncate caps s at maxAttemptMessage bytes without splitting a rune.
func truncate(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= maxAttemptMessage {
		return s
	}
	cut := maxAttemptMessage
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
