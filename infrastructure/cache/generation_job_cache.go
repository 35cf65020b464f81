package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix     = "newsroom:genjob:"
	jobActiveSet     = "newsroom:genjobs:active"
	maxUpdateRetries = 10
)

// GenerationJobCache stores jobs as JSON with a TTL and tracks unfinished job ids in a set.
type GenerationJobCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.IGenerationJob = (*GenerationJobCache)(nil)

func NewGenerationJobCache(client *redis.Client, ttl time.Duration) *GenerationJobCache {
	return &GenerationJobCache{client: client, ttl: ttl}
}

func jobKey(id string) string { return jobKeyPrefix + id }

func (c *GenerationJobCache) Save(ctx context.Context, job *model.GenerationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.queueSave(ctx, pipe, job, data)
		return nil
	})
	return err
}

func (c *GenerationJobCache) queueSave(ctx context.Context, pipe redis.Pipeliner, job *model.GenerationJob, data []byte) {
	pipe.Set(ctx, jobKey(job.ID), data, c.ttl)
	if job.Terminal() {
		pipe.SRem(ctx, jobActiveSet, job.ID)
	} else {
		pipe.SAdd(ctx, jobActiveSet, job.ID)
	}
}

// Update is an optimistic WATCH/MULTI cycle, retried when another writer touched the key first.
func (c *GenerationJobCache) Update(ctx context.Context, id string, fn func(job *model.GenerationJob) bool) (*model.GenerationJob, error) {
	key := jobKey(id)
	var job *model.GenerationJob
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		job = &model.GenerationJob{}
		if err := json.Unmarshal(data, job); err != nil {
			return err
		}
		if !fn(job) {
			return nil
		}
		out, err := json.Marshal(job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			c.queueSave(ctx, pipe, job, out)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := c.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return job, nil
	}
	return nil, fmt.Errorf("update job %s: %w", id, redis.TxFailedErr)
}

func (c *GenerationJobCache) Get(ctx context.Context, id string) (*model.GenerationJob, error) {
	data, err := c.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	job := &model.GenerationJob{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ListActive loads every job in the active set. Ids whose key has expired are pruned.
func (c *GenerationJobCache) ListActive(ctx context.Context) ([]*model.GenerationJob, error) {
	ids, err := c.client.SMembers(ctx, jobActiveSet).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.GenerationJob, 0, len(ids))
	for _, id := range ids {
		job, err := c.Get(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			if err := c.client.SRem(ctx, jobActiveSet, id).Err(); err != nil {
				logger.GetLogger().WithField("error", err).WithField("job_id", id).Warn("Failed to prune expired job id")
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if !job.Terminal() {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
