package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"slidecast/constant"
	"slidecast/dto"
	"slidecast/entities"
)

// JobRepository is the durable record of job state. GetJob and UpdateJob
// return (nil, nil) when the id does not exist, so callers can tell absence
// apart from a store failure.
type JobRepository interface {
	CreateJob(ctx context.Context, init dto.JobInit) (*entities.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	UpdateJob(ctx context.Context, id uuid.UUID, update dto.JobUpdate) (*entities.Job, error)
	DeleteJob(ctx context.Context, id uuid.UUID) (bool, error)
	ListCompletedJobs(ctx context.Context, limit int) ([]*entities.Job, error)
}

// applyUpdate merges a partial update into a job record. Fields follow
// last-write-wins, except output file locations: once a kind is registered
// its location is kept even if a later report names a different one.
// completed_at is stamped exactly once, when the merge lands the job in a
// terminal status.
func applyUpdate(job *entities.Job, update dto.JobUpdate, now time.Time) {
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Progress != nil {
		job.Progress = *update.Progress
	}
	if update.ErrorMessage != nil {
		msg := *update.ErrorMessage
		job.ErrorMessage = &msg
	}
	if update.OutputFiles != nil {
		if job.OutputFiles == nil {
			job.OutputFiles = make(entities.OutputFiles, len(update.OutputFiles))
		}
		for kind, location := range update.OutputFiles {
			if _, exists := job.OutputFiles[kind]; !exists {
				job.OutputFiles[kind] = location
			}
		}
	}
	if job.Status.IsTerminal() && job.CompletedAt == nil {
		at := now
		job.CompletedAt = &at
	}
}

type repo struct {
	db *gorm.DB
}

// NewRepo wraps an open database handle in a gorm-backed JobRepository and
// ensures the jobs table exists.
func NewRepo(db *sql.DB) (JobRepository, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	if err != nil {
		return nil, err
	}
	if err := gormDB.AutoMigrate(&entities.Job{}); err != nil {
		return nil, err
	}
	return &repo{
		db: gormDB,
	}, nil
}

// NewRepoWithDB builds a repository on an already-configured gorm handle.
func NewRepoWithDB(db *gorm.DB) (JobRepository, error) {
	if err := db.AutoMigrate(&entities.Job{}); err != nil {
		return nil, err
	}
	return &repo{db: db}, nil
}

func (r *repo) CreateJob(ctx context.Context, init dto.JobInit) (*entities.Job, error) {
	job := &entities.Job{
		JobID:       uuid.New(),
		Filename:    init.Filename,
		Status:      init.Status,
		Progress:    init.Progress,
		Config:      init.Config,
		CreatedAt:   time.Now().UTC(),
		OutputFiles: nil,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repo) GetJob(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.db.WithContext(ctx).First(job, "job_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (r *repo) UpdateJob(ctx context.Context, id uuid.UUID, update dto.JobUpdate) (*entities.Job, error) {
	var job *entities.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// sqlite serializes writers on its own; postgres needs the row lock
		// so concurrent merges on the same id never interleave.
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		current := &entities.Job{}
		if err := q.First(current, "job_id = ?", id).Error; err != nil {
			return err
		}
		applyUpdate(current, update, time.Now().UTC())
		if err := tx.Save(current).Error; err != nil {
			return err
		}
		job = current
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (r *repo) DeleteJob(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("job_id = ?", id).Delete(&entities.Job{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListCompletedJobs(ctx context.Context, limit int) ([]*entities.Job, error) {
	var jobs []*entities.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", constant.JobStatusCompleted).
		Order("completed_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
