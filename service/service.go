package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"slidecast/constant"
	"slidecast/dto"
	"slidecast/entities"
	"slidecast/repository"
)

var (
	// ErrWorkerLaunch means the external worker could not be started. The
	// job record is moved to error first, so nothing is left stuck at
	// extracting.
	ErrWorkerLaunch = errors.New("worker launch failed")
	// ErrTerminalState means an update arrived for a job whose error state
	// is sticky. Rejected with a conflict rather than silently dropped.
	ErrTerminalState = errors.New("job is in a terminal state")
	// ErrIllegalTransition means the reported status would move the job
	// backward through the pipeline.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrNoOutputs means a completion report carried no output files and the
	// job has none registered.
	ErrNoOutputs = errors.New("completed job must have at least one output file")
	// ErrInvalidProgress means the reported progress is outside [0,100].
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	// ErrInvalidStatus means the reported status is not part of the pipeline.
	ErrInvalidStatus = errors.New("unknown job status")
	// ErrUnexpectedErrorMessage means an error message was reported for a job
	// that is not moving to the error state. Messages and the error status
	// always travel together.
	ErrUnexpectedErrorMessage = errors.New("error_message requires status error")
)

const defaultErrorMessage = "processing failed"

// recentLimit caps ListRecent so a reloaded client page only sees the latest
// results.
const recentLimit = 10

type SubmitInput struct {
	Filename   string
	StagedPath string
	Provider   constant.TTSProvider
	Payload    dto.WorkerPayload
	Voice      *dto.VoiceSettings
}

// Service orchestrates job creation, worker dispatch and progress intake.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*entities.Job, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	ReportProgress(ctx context.Context, id uuid.UUID, update dto.JobUpdate) (*entities.Job, error)
	ListRecent(ctx context.Context) ([]*entities.Job, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo     repository.JobRepository
	launcher WorkerLauncher
}

func NewService(repo repository.JobRepository, launcher WorkerLauncher) Service {
	return &service{
		repo:     repo,
		launcher: launcher,
	}
}

// Submit creates the job record and fires off the detached worker. The
// upload itself already happened, so jobs start at extracting. A failed
// launch marks the job as errored before the call returns.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*entities.Job, error) {
	cfg := &entities.JobConfig{
		TTSProvider: input.Provider,
	}
	if input.Voice != nil {
		cfg.VoiceSettings = &entities.VoiceSettings{
			VoiceID:         input.Voice.VoiceID,
			Stability:       input.Voice.Stability,
			SimilarityBoost: input.Voice.SimilarityBoost,
		}
	}

	job, err := s.repo.CreateJob(ctx, dto.JobInit{
		Filename: input.Filename,
		Status:   constant.JobStatusExtracting,
		Progress: 0,
		Config:   cfg,
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.JobID.String()).
		Str("filename", job.Filename).
		Str("provider", string(input.Provider)).
		Msg("job created")

	if err := s.launcher.Launch(ctx, LaunchInput{
		JobID:      job.JobID,
		StagedPath: input.StagedPath,
		Filename:   input.Filename,
		Payload:    input.Payload,
	}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("job_id", job.JobID.String()).Msg("failed to launch worker")
		msg := fmt.Sprintf("failed to start processing: %v", err)
		status := constant.JobStatusError
		if _, updateErr := s.repo.UpdateJob(ctx, job.JobID, dto.JobUpdate{
			Status:       &status,
			ErrorMessage: &msg,
		}); updateErr != nil {
			zerolog.Ctx(ctx).Error().Err(updateErr).Str("job_id", job.JobID.String()).Msg("failed to mark job as errored")
		}
		return nil, errors.Join(ErrWorkerLaunch, err)
	}

	return job, nil
}

func (s *service) GetStatus(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	return s.repo.GetJob(ctx, id)
}

// ReportProgress applies a worker callback. The store itself stays loose;
// the hardening lives here: progress bounds, forward-only transitions,
// sticky error state, error messages only alongside the error status, and
// completion requiring at least one output file.
func (s *service) ReportProgress(ctx context.Context, id uuid.UUID, update dto.JobUpdate) (*entities.Job, error) {
	if update.Progress != nil && (*update.Progress < 0 || *update.Progress > 100) {
		return nil, ErrInvalidProgress
	}
	if update.Status != nil && !update.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if current.Status == constant.JobStatusError {
		return nil, ErrTerminalState
	}
	if update.Status != nil && !constant.CanTransition(current.Status, *update.Status) {
		if current.Status.IsTerminal() {
			return nil, ErrTerminalState
		}
		return nil, ErrIllegalTransition
	}

	if update.ErrorMessage != nil {
		effective := current.Status
		if update.Status != nil {
			effective = *update.Status
		}
		if effective != constant.JobStatusError {
			return nil, ErrUnexpectedErrorMessage
		}
	}
	if update.Status != nil && *update.Status == constant.JobStatusCompleted {
		if len(update.OutputFiles) == 0 && len(current.OutputFiles) == 0 {
			return nil, ErrNoOutputs
		}
	}
	if update.Status != nil && *update.Status == constant.JobStatusError &&
		update.ErrorMessage == nil && current.ErrorMessage == nil {
		msg := defaultErrorMessage
		update.ErrorMessage = &msg
	}

	job, err := s.repo.UpdateJob(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	zerolog.Ctx(ctx).Debug().
		Str("job_id", id.String()).
		Str("status", job.Status.String()).
		Int("progress", job.Progress).
		Msg("progress reported")

	return job, nil
}

func (s *service) ListRecent(ctx context.Context) ([]*entities.Job, error) {
	return s.repo.ListCompletedJobs(ctx, recentLimit)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.DeleteJob(ctx, id)
}
