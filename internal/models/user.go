package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account. An account is addressable by its Google
// subject id, by email, or by both; email uniqueness holds across both
// federated and local accounts.
type User struct {
	ID            uuid.UUID  `json:"id"`
	GoogleID      *string    `json:"google_id,omitempty"`
	Email         string     `json:"email"`
	Name          *string    `json:"name,omitempty"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	PasswordHash  *string    `json:"-"`
	EmailVerified bool       `json:"email_verified"`
	OTPCode       *string    `json:"-"`
	OTPExpiresAt  *time.Time `json:"-"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasActiveOTP reports whether the user has an unexpired verification challenge.
func (u *User) HasActiveOTP(now time.Time) bool {
	return u.OTPCode != nil && u.OTPExpiresAt != nil && now.Before(*u.OTPExpiresAt)
}

// PublicUser is the user shape returned by API responses. Credential and
// challenge fields are never part of it.
type PublicUser struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          *string    `json:"name,omitempty"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Public returns the API-safe view of the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}
