package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type ChapterStatus string

const (
	ChapterStatusDraft     ChapterStatus = "draft"
	ChapterStatusScripted  ChapterStatus = "scripted"
	ChapterStatusRendering ChapterStatus = "rendering"
	ChapterStatusRendered  ChapterStatus = "rendered"
	ChapterStatusFailed    ChapterStatus = "failed"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusRendering  JobStatus = "rendering"
	JobStatusUploading  JobStatus = "uploading"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

type Chapter struct {
	ID            uuid.UUID     `json:"id"`
	ProjectID     uuid.UUID     `json:"project_id"`
	ChapterNumber int           `json:"chapter_number"`
	Title         *string       `json:"title,omitempty"`
	Status        ChapterStatus `json:"status"`
	VideoURL      *string       `json:"video_url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ScriptBlock is one narration unit within a chapter. sequence_number is unique
// per chapter and defines render and concatenation order.
type ScriptBlock struct {
	ID             uuid.UUID `json:"id"`
	ChapterID      uuid.UUID `json:"chapter_id"`
	SequenceNumber int       `json:"sequence_number"`
	Text           *string   `json:"text,omitempty"`
	Assets         JSONB     `json:"assets"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AudioURL returns the narration audio URL from the assets JSONB, or "" if absent.
func (b *ScriptBlock) AudioURL() string {
	return b.assetString("audio_url")
}

// ImageURL returns the slide image URL from the assets JSONB, or "" if absent.
func (b *ScriptBlock) ImageURL() string {
	return b.assetString("image_url")
}

func (b *ScriptBlock) assetString(key string) string {
	if b.Assets == nil {
		return ""
	}
	if v, ok := b.Assets[key].(string); ok {
		return v
	}
	return ""
}

// RenderJob tracks the async progress of one chapter render request.
// It lives only in process memory — see the tracker package.
type RenderJob struct {
	JobID     string    `json:"job_id"`
	ChapterID uuid.UUID `json:"chapter_id"`
	Status    JobStatus `json:"status"`
	Stage     string    `json:"stage"`
	Completed bool      `json:"completed"`
	VideoURL  *string   `json:"video_url,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DTOs for API responses

type RenderChapterRequest struct {
	ChapterID string `json:"chapter_id"`
}

type RenderChapterResponse struct {
	Status    string    `json:"status"`
	ChapterID uuid.UUID `json:"chapter_id"`
	JobID     string    `json:"job_id"`
}
