package artifact

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"slidecast/constant"
	"slidecast/repository"
)

var (
	// ErrUnknownKind means the requested output kind is not part of the
	// closed set. Distinct from ErrNotFound so the boundary can answer 400
	// instead of 404.
	ErrUnknownKind = errors.New("unknown output kind")
	// ErrNotFound covers every absence: job, outputs, kind or backing file.
	ErrNotFound = errors.New("artifact not found")
)

// kindInfo fixes the download metadata per output kind. Content type comes
// from the kind, never from sniffing the artifact.
type kindInfo struct {
	contentType string
	filename    string
}

var kinds = map[constant.OutputKind]kindInfo{
	constant.OutputKindNarratedPPTX: {
		contentType: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		filename:    "narrated_presentation.pptx",
	},
	constant.OutputKindVideoMP4: {
		contentType: "video/mp4",
		filename:    "learning_module.mp4",
	},
	constant.OutputKindPDF: {
		contentType: "application/pdf",
		filename:    "original_presentation.pdf",
	},
	constant.OutputKindTranscriptsJSON: {
		contentType: "application/json",
		filename:    "transcripts.json",
	},
	constant.OutputKindAudioZip: {
		contentType: "application/zip",
		filename:    "audio_files.zip",
	},
}

// Store retrieves registered artifact bytes by their location token.
// Implementations return ErrNotFound when the location no longer exists.
type Store interface {
	Open(ctx context.Context, location string) (io.ReadCloser, int64, error)
}

// Artifact is a resolved, streamable output file.
type Artifact struct {
	ContentType string
	Filename    string
	Size        int64
	Body        io.ReadCloser
}

// Resolver maps a completed job's output kind to a byte stream. Only fully
// registered artifacts resolve; a job mid-pipeline has nothing to serve.
type Resolver struct {
	repo  repository.JobRepository
	store Store
}

func NewResolver(repo repository.JobRepository, store Store) *Resolver {
	return &Resolver{
		repo:  repo,
		store: store,
	}
}

func (r *Resolver) Resolve(ctx context.Context, jobID uuid.UUID, kind constant.OutputKind) (*Artifact, error) {
	info, ok := kinds[kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	job, err := r.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || len(job.OutputFiles) == 0 {
		return nil, ErrNotFound
	}
	location, ok := job.OutputFiles[kind]
	if !ok || location == "" {
		return nil, ErrNotFound
	}

	body, size, err := r.store.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		ContentType: info.contentType,
		Filename:    info.filename,
		Size:        size,
		Body:        body,
	}, nil
}
