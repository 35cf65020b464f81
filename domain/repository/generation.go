package repository

import (
	"context"

	"newsroom/domain/model"
)

type IGenerationJob interface {
	Save(ctx context.Context, job *model.GenerationJob) error
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
	// Update runs fn on the current job and saves the result when fn returns true, atomically
	// against other writers. fn may run more than once and must not keep state between runs.
	Update(ctx context.Context, id string, fn func(job *model.GenerationJob) bool) (*model.GenerationJob, error)
	// ListActive returns jobs that have not reached a terminal status.
	ListActive(ctx context.Context) ([]*model.GenerationJob, error)
}

// IArticle reads articles produced by the ingestion pipeline.
type IArticle interface {
	GetByIDs(ctx context.Context, ids []string) ([]model.Article, error)
}

type IAIProvider interface {
	Generate(ctx context.Context, req model.GenerationRequest) (string, error)
}
