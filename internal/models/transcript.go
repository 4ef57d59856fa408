package models

import (
	"time"

	"github.com/google/uuid"
)

// LanguageAuto is the sentinel language code meaning the recognition
// provider auto-detects the spoken language.
const LanguageAuto = "auto"

// Transcript represents a persisted transcription with its billing metadata.
// Text is never null once created (empty string when the provider recognized
// nothing). Filename is nil for direct "live" text saves, which bill zero
// minutes and zero cost.
type Transcript struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Text            string    `json:"text"`
	Filename        *string   `json:"filename,omitempty"`
	Language        string    `json:"language"`
	DurationMinutes int       `json:"duration"`
	Cost            float64   `json:"cost"`
	FileSizeBytes   *int64    `json:"file_size_bytes,omitempty"`
	ProcessingSecs  *int      `json:"processing_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// TranscriptStats aggregates a user's transcription history for the
// profile endpoint.
type TranscriptStats struct {
	TotalTranscripts int     `json:"total_transcripts"`
	TotalCost        float64 `json:"total_cost"`
	TotalMinutes     int     `json:"total_minutes"`
	ThisMonthCount   int     `json:"this_month_count"`
}
