package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"slidecast/artifact"
	"slidecast/constant"
	"slidecast/dto"
	"slidecast/service"
)

const pptxMime = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type Handler struct {
	svc           service.Service
	resolver      *artifact.Resolver
	uploadDir     string
	maxUploadSize int64
	validate      *validator.Validate
}

func NewHandler(svc service.Service, resolver *artifact.Resolver, uploadDir string, maxUploadSize int64) *Handler {
	return &Handler{
		svc:           svc,
		resolver:      resolver,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
		validate:      validator.New(),
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.POST("/api/upload", h.Upload)
	r.GET("/api/jobs", h.ListRecent)
	r.GET("/api/jobs/:id", h.GetJob)
	r.PATCH("/api/jobs/:id", h.UpdateJob)
	r.DELETE("/api/jobs/:id", h.DeleteJob)
	r.GET("/api/download/:jobId/:fileType", h.Download)
}

func (h *Handler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	// cap the multipart body before anything parses it, so an oversized
	// upload is cut off mid-stream instead of buffered and then rejected
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File exceeds the %d byte limit", h.maxUploadSize)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	var req dto.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": fieldErrors(err),
		})
		return
	}

	var voice *dto.VoiceSettings
	if req.VoiceSettingsJSON != "" {
		voice = &dto.VoiceSettings{}
		if err := json.Unmarshal([]byte(req.VoiceSettingsJSON), voice); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": []gin.H{{"field": "voice_settings", "message": "must be a JSON object"}},
			})
			return
		}
		if err := h.validate.Struct(voice); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": fieldErrors(err),
			})
			return
		}
	}

	staged := filepath.Join(h.uploadDir, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, staged); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to stage uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	mt, err := mimetype.DetectFile(staged)
	if err != nil || !mt.Is(pptxMime) {
		removeStaged(ctx, staged)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .pptx files are allowed"})
		return
	}

	job, err := h.svc.Submit(ctx, service.SubmitInput{
		Filename:   file.Filename,
		StagedPath: staged,
		Provider:   req.TTSProvider,
		Voice:      voice,
		Payload: dto.WorkerPayload{
			TTSProvider:      req.TTSProvider,
			OpenAIAPIKey:     req.OpenAIAPIKey,
			GoogleTTSAPIKey:  req.GoogleTTSAPIKey,
			ElevenLabsAPIKey: req.ElevenLabsAPIKey,
			VoiceSettings:    voice,
		},
	})
	if err != nil {
		removeStaged(ctx, staged)
		zerolog.Ctx(ctx).Error().Err(err).Msg("submit failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": job.JobID})
}

func (h *Handler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	job, err := h.svc.GetStatus(c.Request.Context(), id)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("job_id", id.String()).Msg("get job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job status"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// UpdateJob is the worker's progress callback. It accepts any subset of
// status, progress, error_message and output_files.
func (h *Handler) UpdateJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	var update dto.JobUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update payload"})
		return
	}
	if update.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Update payload carries no fields"})
		return
	}

	job, err := h.svc.ReportProgress(c.Request.Context(), id, update)
	switch {
	case errors.Is(err, service.ErrTerminalState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrInvalidProgress),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrNoOutputs),
		errors.Is(err, service.ErrUnexpectedErrorMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("job_id", id.String()).Msg("update job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update job status"})
		return
	case job == nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) DeleteJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	existed, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("job_id", id.String()).Msg("delete job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete job"})
		return
	}
	if !existed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) ListRecent(c *gin.Context) {
	jobs, err := h.svc.ListRecent(c.Request.Context())
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("list recent failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) Download(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	kind := constant.OutputKind(c.Param("fileType"))

	art, err := h.resolver.Resolve(c.Request.Context(), jobID, kind)
	switch {
	case errors.Is(err, artifact.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	case errors.Is(err, artifact.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	case err != nil:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("job_id", jobID.String()).Msg("download failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Download failed"})
		return
	}
	defer art.Body.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", art.Filename),
	}
	c.DataFromReader(http.StatusOK, art.Size, art.ContentType, art.Body, extraHeaders)
}

func fieldErrors(err error) []gin.H {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]gin.H, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, gin.H{
				"field":   fe.Field(),
				"message": fmt.Sprintf("failed validation on %q", fe.Tag()),
			})
		}
		return details
	}
	return []gin.H{{"message": err.Error()}}
}

// removeStaged cleans a staged upload after a failed submission. Store
// cleanup is the caller's job, never the store's.
func removeStaged(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("failed to remove staged upload")
	}
}
