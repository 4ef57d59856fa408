// Package mailer sends account emails over SMTP. All sends are best-effort
// from the caller's point of view: auth flows log failures and continue.
package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when no SMTP transport is configured.
var ErrNotConfigured = errors.New("mail transport not configured")

// Mailer delivers account lifecycle emails. userID is carried for
// delivery logs only and never appears in the message itself.
type Mailer interface {
	// SendOTP emails a verification code. expiresAt is shown to the user.
	SendOTP(ctx context.Context, userID uuid.UUID, email, name, code string, expiresAt time.Time) error

	// SendWelcome emails the post-verification welcome message.
	SendWelcome(ctx context.Context, userID uuid.UUID, email, name string) error
}
