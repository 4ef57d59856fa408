package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxscribe/voxscribe-api/internal/models"
)

// TranscriptRepository handles transcript database operations
type TranscriptRepository struct {
	db *DB
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create persists a transcript with a server-assigned creation timestamp
func (r *TranscriptRepository) Create(ctx context.Context, t *models.Transcript) error {
	query := `
		INSERT INTO transcripts (id, user_id, text, filename, language, duration_minutes, cost,
			file_size_bytes, processing_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Language == "" {
		t.Language = models.LanguageAuto
	}

	err := r.db.QueryRowContext(ctx, query,
		t.ID,
		t.UserID,
		t.Text,
		t.Filename,
		t.Language,
		t.DurationMinutes,
		t.Cost,
		t.FileSizeBytes,
		t.ProcessingSecs,
		time.Now(),
	).Scan(&t.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	return nil
}

const transcriptColumns = `id, user_id, text, filename, language, duration_minutes, cost,
		file_size_bytes, processing_seconds, created_at`

// ListByUser returns all transcripts owned by the user, newest first
func (r *TranscriptRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transcript, error) {
	query := `SELECT ` + transcriptColumns + ` FROM transcripts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryTranscripts(ctx, query, userID)
}

// RecentByUser returns the user's most recent transcripts, newest first
func (r *TranscriptRepository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transcript, error) {
	query := `SELECT ` + transcriptColumns + ` FROM transcripts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryTranscripts(ctx, query, userID, limit)
}

func (r *TranscriptRepository) queryTranscripts(ctx context.Context, query string, args ...any) ([]*models.Transcript, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	transcripts := []*models.Transcript{}
	for rows.Next() {
		t := &models.Transcript{}
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Text,
			&t.Filename,
			&t.Language,
			&t.DurationMinutes,
			&t.Cost,
			&t.FileSizeBytes,
			&t.ProcessingSecs,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}

	return transcripts, nil
}

// DeleteByIDForUser deletes a transcript only if it belongs to the given
// owner. A missing record and a foreign-owned record both return ErrNotFound.
func (r *TranscriptRepository) DeleteByIDForUser(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM transcripts WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return requireRowAffected(res)
}

// StatsByUser aggregates the user's transcription history
func (r *TranscriptRepository) StatsByUser(ctx context.Context, userID uuid.UUID) (*models.TranscriptStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(cost), 0),
			COALESCE(SUM(duration_minutes), 0),
			COUNT(*) FILTER (WHERE created_at >= date_trunc('month', now()))
		FROM transcripts
		WHERE user_id = $1
	`
	stats := &models.TranscriptStats{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalTranscripts,
		&stats.TotalCost,
		&stats.TotalMinutes,
		&stats.ThisMonthCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transcript stats: %w", err)
	}
	return stats, nil
}
