package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

// JobStore keeps jobs as JSON so readers never share maps with the engine.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

var _ repository.IGenerationJob = (*JobStore)(nil)

func NewJobStore() *JobStore { return &JobStore{jobs: map[string][]byte{}} }

func (s *JobStore) Save(_ context.Context, job *model.GenerationJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs[job.ID] = raw
	s.mu.Unlock()
	return nil
}

func (s *JobStore) Get(_ context.Context, id string) (*model.GenerationJob, error) {
	s.mu.RLock()
	raw, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	job := &model.GenerationJob{}
	if err := json.Unmarshal(raw, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobStore) Update(_ context.Context, id string, fn func(job *model.GenerationJob) bool) (*model.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.jobs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	job := &model.GenerationJob{}
	if err := json.Unmarshal(raw, job); err != nil {
		return nil, err
	}
	if !fn(job) {
		return job, nil
	}
	out, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	s.jobs[id] = out
	return job, nil
}

func (s *JobStore) ListActive(_ context.Context) ([]*model.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.GenerationJob
	for _, raw := range s.jobs {
		job := &model.GenerationJob{}
		if err := json.Unmarshal(raw, job); err != nil {
			return nil, err
		}
		if !job.Terminal() {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
