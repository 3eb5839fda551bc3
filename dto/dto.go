package dto

import (
	"github.com/google/uuid"
	"slidecast/constant"
	"slidecast/entities"
)

// UploadRequest carries the multipart form fields of a submission. The file
// part is handled separately by the handler.
type UploadRequest struct {
	TTSProvider       constant.TTSProvider `form:"tts_provider" binding:"required,oneof=openai google elevenlabs"`
	OpenAIAPIKey      string               `form:"openai_api_key" binding:"required"`
	GoogleTTSAPIKey   string               `form:"google_tts_api_key" binding:"required_if=TTSProvider google"`
	ElevenLabsAPIKey  string               `form:"elevenlabs_api_key" binding:"required_if=TTSProvider elevenlabs"`
	VoiceSettingsJSON string               `form:"voice_settings"`
}

// VoiceSettings is the decoded shape of the voice_settings form field.
type VoiceSettings struct {
	VoiceID         string   `json:"voice_id"`
	Stability       *float64 `json:"stability" validate:"omitempty,gte=0,lte=1"`
	SimilarityBoost *float64 `json:"similarity_boost" validate:"omitempty,gte=0,lte=1"`
}

// JobInit holds the fields a job is created with.
type JobInit struct {
	Filename string
	Status   constant.JobStatus
	Progress int
	Config   *entities.JobConfig
}

// JobUpdate is a partial update reported by the worker. A nil field means
// "leave unchanged", which keeps "no change" distinct from "clear".
type JobUpdate struct {
	Status       *constant.JobStatus  `json:"status,omitempty"`
	Progress     *int                 `json:"progress,omitempty"`
	ErrorMessage *string              `json:"error_message,omitempty"`
	OutputFiles  entities.OutputFiles `json:"output_files,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (u *JobUpdate) Empty() bool {
	return u.Status == nil && u.Progress == nil && u.ErrorMessage == nil && u.OutputFiles == nil
}

// WorkerPayload is the validated configuration handed to the worker. It is
// the one place credentials travel; they are never written to the job record.
type WorkerPayload struct {
	TTSProvider      constant.TTSProvider `json:"tts_provider"`
	OpenAIAPIKey     string               `json:"openai_api_key"`
	GoogleTTSAPIKey  string               `json:"google_tts_api_key,omitempty"`
	ElevenLabsAPIKey string               `json:"elevenlabs_api_key,omitempty"`
	VoiceSettings    *VoiceSettings       `json:"voice_settings,omitempty"`
	CallbackURL      string               `json:"callback_url"`
}

// JobMessage is the launch request published to the worker queue.
type JobMessage struct {
	JobId      uuid.UUID     `json:"jobId"`
	StagedPath string        `json:"stagedPath"`
	FileName   string        `json:"fileName"`
	Payload    WorkerPayload `json:"payload"`
}
