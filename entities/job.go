package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"slidecast/constant"
)

// OutputFiles maps an output kind to the location of the registered artifact.
// Stored as a JSON column.
type OutputFiles map[constant.OutputKind]string

func (o OutputFiles) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

func (o *OutputFiles) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("output_files: unsupported column type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, o)
}

// JobConfig records the TTS parameters a job ran with, for audit and replay.
// Credentials are never persisted.
type JobConfig struct {
	TTSProvider   constant.TTSProvider `json:"tts_provider"`
	VoiceSettings *VoiceSettings       `json:"voice_settings,omitempty"`
}

type VoiceSettings struct {
	VoiceID         string   `json:"voice_id,omitempty"`
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty"`
}

func (c *JobConfig) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *JobConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("config: unsupported column type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, c)
}

// Job is one end-to-end narration request. The numeric primary key stays
// internal; JobID is the opaque handle clients and workers see.
type Job struct {
	ID           uint               `gorm:"primaryKey;autoIncrement" json:"-"`
	JobID        uuid.UUID          `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	Filename     string             `gorm:"not null" json:"filename"`
	Status       constant.JobStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	Progress     int                `gorm:"not null" json:"progress"`
	ErrorMessage *string            `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	CompletedAt  *time.Time         `gorm:"index" json:"completed_at,omitempty"`
	OutputFiles  OutputFiles        `gorm:"type:jsonb" json:"output_files,omitempty"`
	Config       *JobConfig         `gorm:"type:jsonb" json:"config,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// Clone returns a deep copy so callers of the in-memory store never share
// mutable state with it.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		cp.ErrorMessage = &msg
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		cp.CompletedAt = &at
	}
	if j.OutputFiles != nil {
		cp.OutputFiles = make(OutputFiles, len(j.OutputFiles))
		for k, v := range j.OutputFiles {
			cp.OutputFiles[k] = v
		}
	}
	if j.Config != nil {
		cfg := *j.Config
		if j.Config.VoiceSettings != nil {
			vs := *j.Config.VoiceSettings
			cfg.VoiceSettings = &vs
		}
		cp.Config = &cfg
	}
	return &cp
}
