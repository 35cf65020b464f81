package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type PlatformStatus string

const (
	PlatformPending    PlatformStatus = "pending"
	PlatformGenerating PlatformStatus = "generating"
	PlatformCompleted  PlatformStatus = "completed"
	PlatformError      PlatformStatus = "error"
)

const (
	ProgressGenerating = 10
	ProgressDone       = 100
)

// PlatformProgress is one unit of work inside a GenerationJob.
// Attempt increases on every resubmit so late results from an earlier attempt are discarded.
type PlatformProgress struct {
	Status    PlatformStatus `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Content   string         `json:"content,omitempty"`
	Attempt   int            `json:"attempt"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (p *PlatformProgress) InFlight() bool {
	return p.Status == PlatformPending || p.Status == PlatformGenerating
}

type GenerationJob struct {
	ID           string                       `json:"id"`
	OwnerID      string                       `json:"owner_id"`
	ArticleIDs   []string                     `json:"article_ids"`
	Platforms    []string                     `json:"platforms"`
	Status       JobStatus                    `json:"status"`
	PerPlatform  map[string]*PlatformProgress `json:"per_platform_status"`
	ErrorMessage string                       `json:"error_message,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
	CompletedAt  *time.Time                   `json:"completed_at,omitempty"`
}

func NewGenerationJob(id, ownerID string, articleIDs, platforms []string, now time.Time) *GenerationJob {
	per := make(map[string]*PlatformProgress, len(platforms))
	for _, p := range platforms {
		per[p] = &PlatformProgress{Status: PlatformPending, Attempt: 1, Message: "queued", UpdatedAt: now}
	}
	return &GenerationJob{
		ID:          id,
		OwnerID:     ownerID,
		ArticleIDs:  append([]string(nil), articleIDs...),
		Platforms:   append([]string(nil), platforms...),
		Status:      JobQueued,
		PerPlatform: per,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AggregateStatus derives the job status from its platforms: completed iff all completed,
// failed iff at least one errored and none is still pending or generating, else processing.
func AggregateStatus(per map[string]*PlatformProgress) JobStatus {
	if len(per) == 0 {
		return JobProcessing
	}
	completed, errored := 0, 0
	for _, p := range per {
		switch p.Status {
		case PlatformCompleted:
			completed++
		case PlatformError:
			errored++
		default:
			return JobProcessing
		}
	}
	if completed == len(per) {
		return JobCompleted
	}
	if errored > 0 {
		return JobFailed
	}
	return JobProcessing
}

func (j *GenerationJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// Recompute refreshes Status, ErrorMessage and CompletedAt after a platform transition.
func (j *GenerationJob) Recompute(now time.Time) {
	j.Status = AggregateStatus(j.PerPlatform)
	j.UpdatedAt = now

	names := make([]string, 0, len(j.PerPlatform))
	for name := range j.PerPlatform {
		names = append(names, name)
	}
	sort.Strings(names)
	var msgs []string
	for _, name := range names {
		if p := j.PerPlatform[name]; p.Status == PlatformError && p.Error != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", name, p.Error))
		}
	}
	j.ErrorMessage = strings.Join(msgs, "; ")

	if j.Terminal() {
		if j.CompletedAt == nil {
			t := now
			j.CompletedAt = &t
		}
	} else {
		j.CompletedAt = nil
	}
}

func (j *GenerationJob) unit(platform string, attempt int) *PlatformProgress {
	p, ok := j.PerPlatform[platform]
	if !ok || p.Attempt != attempt {
		return nil
	}
	return p
}

// StartPlatform moves a pending unit to generating. It returns false if the unit moved on.
func (j *GenerationJob) StartPlatform(platform string, attempt int, now time.Time) bool {
	p := j.unit(platform, attempt)
	if p == nil || p.Status != PlatformPending {
		return false
	}
	p.Status = PlatformGenerating
	p.Message = "generating"
	if p.Progress < ProgressGenerating {
		p.Progress = ProgressGenerating
	}
	p.UpdatedAt = now
	j.Recompute(now)
	return true
}

func (j *GenerationJob) CompletePlatform(platform string, attempt int, content string, now time.Time) bool {
	p := j.unit(platform, attempt)
	if p == nil || p.Status != PlatformGenerating {
		return false
	}
	p.Status = PlatformCompleted
	p.Progress = ProgressDone
	p.Content = content
	p.Message = "completed"
	p.Error = ""
	p.UpdatedAt = now
	j.Recompute(now)
	return true
}

// FailPlatform moves an in-flight unit to error. Progress is left where it was.
func (j *GenerationJob) FailPlatform(platform string, attempt int, reason string, now time.Time) bool {
	p := j.unit(platform, attempt)
	if p == nil || !p.InFlight() {
		return false
	}
	p.Status = PlatformError
	p.Error = reason
	p.Message = "error"
	p.UpdatedAt = now
	j.Recompute(now)
	return true
}

// TouchPlatform refreshes UpdatedAt of an in-flight unit so other workers do not sweep it.
func (j *GenerationJob) TouchPlatform(platform string, attempt int, now time.Time) bool {
	p := j.unit(platform, attempt)
	if p == nil || !p.InFlight() {
		return false
	}
	p.UpdatedAt = now
	return true
}

// ResetPlatform re-enters a finished unit at pending for a new attempt.
func (j *GenerationJob) ResetPlatform(platform string, now time.Time) (int, error) {
	p, ok := j.PerPlatform[platform]
	if !ok {
		return 0, fmt.Errorf("%w: platform %s is not part of job %s", ErrInvalidInput, platform, j.ID)
	}
	if p.InFlight() {
		return 0, fmt.Errorf("%w: platform %s is still %s", ErrConflict, platform, p.Status)
	}
	p.Attempt++
	p.Status = PlatformPending
	p.Progress = 0
	p.Error = ""
	p.Message = "resubmitted"
	p.UpdatedAt = now
	j.Recompute(now)
	return p.Attempt, nil
}

// Content returns the generated text for a platform if that unit completed.
func (j *GenerationJob) Content(platform string) (string, bool) {
	p, ok := j.PerPlatform[platform]
	if !ok || p.Status != PlatformCompleted || p.Content == "" {
		return "", false
	}
	return p.Content, true
}

type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type GenerationRequest struct {
	Prompt   string
	Platform string
	Provider string
	Model    string
	APIKey   string
}
