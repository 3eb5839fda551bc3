package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"slidecast/constant"
	"slidecast/dto"
	"slidecast/entities"
)

// memoryRepo keeps jobs in a process-local map. Suitable for development and
// tests; state is lost on restart.
type memoryRepo struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entities.Job
}

func NewMemoryRepo() JobRepository {
	return &memoryRepo{
		jobs: make(map[uuid.UUID]*entities.Job),
	}
}

func (r *memoryRepo) CreateJob(ctx context.Context, init dto.JobInit) (*entities.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &entities.Job{
		JobID:     uuid.New(),
		Filename:  init.Filename,
		Status:    init.Status,
		Progress:  init.Progress,
		Config:    init.Config,
		CreatedAt: time.Now().UTC(),
	}
	r.jobs[job.JobID] = job
	return job.Clone(), nil
}

func (r *memoryRepo) GetJob(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return job.Clone(), nil
}

func (r *memoryRepo) UpdateJob(ctx context.Context, id uuid.UUID, update dto.JobUpdate) (*entities.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	applyUpdate(job, update, time.Now().UTC())
	return job.Clone(), nil
}

func (r *memoryRepo) DeleteJob(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.jobs[id]
	delete(r.jobs, id)
	return ok, nil
}

func (r *memoryRepo) ListCompletedJobs(ctx context.Context, limit int) ([]*entities.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var completed []*entities.Job
	for _, job := range r.jobs {
		if job.Status == constant.JobStatusCompleted && job.CompletedAt != nil {
			completed = append(completed, job.Clone())
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		return completed[i].CompletedAt.After(*completed[j].CompletedAt)
	})
	if limit > 0 && len(completed) > limit {
		completed = completed[:limit]
	}
	return completed, nil
}
