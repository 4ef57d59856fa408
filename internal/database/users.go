package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/voxscribe/voxscribe-api/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, google_id, email, name, avatar_url, password_hash, email_verified,
		otp_code, otp_expires_at, last_login_at, last_seen_at, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.EmailVerified,
		&user.OTPCode,
		&user.OTPExpiresAt,
		&user.LastLoginAt,
		&user.LastSeenAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// NormalizeEmail lowercases and trims an email for storage and comparison.
// Email uniqueness is case-insensitive across federated and local accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, google_id, email, name, avatar_url, password_hash, email_verified,
			otp_code, otp_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.GoogleID,
		NormalizeEmail(user.Email),
		user.Name,
		user.AvatarURL,
		user.PasswordHash,
		user.EmailVerified,
		user.OTPCode,
		user.OTPExpiresAt,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Email = NormalizeEmail(user.Email)

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

// GetByGoogleID retrieves a user by Google subject id
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, googleID))
}

// LinkGoogleID attaches a Google subject id to an existing account, keeping
// a single account across login methods.
func (r *UserRepository) LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string, avatarURL *string) error {
	query := `
		UPDATE users SET google_id = $2, avatar_url = COALESCE($3, avatar_url), updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, googleID, avatarURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link google id: %w", err)
	}
	return requireRowAffected(res)
}

// UpdateProfile updates name and/or email. The caller is responsible for
// checking email uniqueness before switching emails.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET name = $2, email = $3, avatar_url = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		NormalizeEmail(user.Email),
		user.AvatarURL,
		time.Now(),
	).Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	user.Email = NormalizeEmail(user.Email)
	return nil
}

// SetOTP stores a fresh verification challenge, invalidating any previous one
func (r *UserRepository) SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	query := `
		UPDATE users SET otp_code = $2, otp_expires_at = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, code, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set otp: %w", err)
	}
	return requireRowAffected(res)
}

// MarkVerified flips the account to verified and clears the challenge.
// Verified is terminal; callers must reject already-verified accounts first.
func (r *UserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users SET email_verified = TRUE, otp_code = NULL, otp_expires_at = NULL, updated_at = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return requireRowAffected(res)
}

// UpdateLastLogin records a successful login. Concurrent logins race with
// last-write-wins semantics, which is acceptable.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return requireRowAffected(res)
}

// TouchLastSeen updates the last API interaction timestamp, best-effort
func (r *UserRepository) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_seen_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to touch last seen: %w", err)
	}
	return nil
}

// List returns all users, newest first
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.GoogleID,
			&user.Email,
			&user.Name,
			&user.AvatarURL,
			&user.PasswordHash,
			&user.EmailVerified,
			&user.OTPCode,
			&user.OTPExpiresAt,
			&user.LastLoginAt,
			&user.LastSeenAt,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
