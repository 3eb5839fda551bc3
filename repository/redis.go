package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"slidecast/constant"
	"slidecast/dto"
	"slidecast/entities"
)

const (
	jobKeyPrefix      = "job:"
	completedIndexKey = "jobs:completed"
)

// redisRepo stores each job as a JSON record. Partial updates go through an
// optimistic WATCH transaction so concurrent merges on the same id never
// interleave. A sorted set indexed by completion time backs the recent list.
type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) JobRepository {
	return &redisRepo{rdb: rdb}
}

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}

func (r *redisRepo) CreateJob(ctx context.Context, init dto.JobInit) (*entities.Job, error) {
	job := &entities.Job{
		JobID:     uuid.New(),
		Filename:  init.Filename,
		Status:    init.Status,
		Progress:  init.Progress,
		Config:    init.Config,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, jobKey(job.JobID), payload, 0).Err(); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *redisRepo) GetJob(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	data, err := r.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var job entities.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *redisRepo) UpdateJob(ctx context.Context, id uuid.UUID, update dto.JobUpdate) (*entities.Job, error) {
	key := jobKey(id)
	var merged *entities.Job
	for {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			var job entities.Job
			if err := json.Unmarshal(data, &job); err != nil {
				return err
			}
			applyUpdate(&job, update, time.Now().UTC())
			payload, err := json.Marshal(&job)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				if job.Status == constant.JobStatusCompleted && job.CompletedAt != nil {
					pipe.ZAdd(ctx, completedIndexKey, redis.Z{
						Score:  float64(job.CompletedAt.UnixNano()),
						Member: job.JobID.String(),
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			merged = &job
			return nil
		}, key)
		if err == nil {
			return merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
}

func (r *redisRepo) DeleteJob(ctx context.Context, id uuid.UUID) (bool, error) {
	removed, err := r.rdb.Del(ctx, jobKey(id)).Result()
	if err != nil {
		return false, err
	}
	if err := r.rdb.ZRem(ctx, completedIndexKey, id.String()).Err(); err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (r *redisRepo) ListCompletedJobs(ctx context.Context, limit int) ([]*entities.Job, error) {
	ids, err := r.rdb.ZRevRange(ctx, completedIndexKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]*entities.Job, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		job, err := r.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}
