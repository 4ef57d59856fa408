package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voxscribe/voxscribe-api/internal/models"
)

// UserRepositoryInterface defines the interface for user repository operations
// This interface enables better testability by allowing mock implementations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string, avatarURL *string) error
	UpdateProfile(ctx context.Context, user *models.User) error
	SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	TouchLastSeen(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.User, error)
}

// TranscriptRepositoryInterface defines the interface for transcript repository operations
type TranscriptRepositoryInterface interface {
	Create(ctx context.Context, t *models.Transcript) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transcript, error)
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transcript, error)
	DeleteByIDForUser(ctx context.Context, id, userID uuid.UUID) error
	StatsByUser(ctx context.Context, userID uuid.UUID) (*models.TranscriptStats, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface       = (*UserRepository)(nil)
	_ TranscriptRepositoryInterface = (*TranscriptRepository)(nil)
)
