package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EmailNotifier publishes account emails as queue jobs for the worker to
// deliver. It satisfies the auth service's notifier contract, so signup and
// verification never block on SMTP.
type EmailNotifier struct {
	queue JobQueue
}

// NewEmailNotifier creates a notifier that enqueues mail jobs
func NewEmailNotifier(q JobQueue) *EmailNotifier {
	return &EmailNotifier{queue: q}
}

// SendOTP enqueues a verification code email. The job expires with the code
// itself, so a stale delivery is dropped instead of mailing a dead code.
func (n *EmailNotifier) SendOTP(ctx context.Context, userID uuid.UUID, email, name, code string, expiresAt time.Time) error {
	job := NewOTPEmailJob(userID, email, name, code, expiresAt)
	if err := n.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue verification email: %w", err)
	}
	return nil
}

// SendWelcome enqueues a welcome email
func (n *EmailNotifier) SendWelcome(ctx context.Context, userID uuid.UUID, email, name string) error {
	job := NewWelcomeEmailJob(userID, email, name)
	if err := n.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue welcome email: %w", err)
	}
	return nil
}
