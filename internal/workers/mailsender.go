package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/voxscribe/voxscribe-api/internal/mailer"
	"github.com/voxscribe/voxscribe-api/internal/queue"
)

// MailSender processes account email jobs
type MailSender struct {
	mailer mailer.Mailer
}

// NewMailSender creates a new mail sender worker
func NewMailSender(m mailer.Mailer) *MailSender {
	return &MailSender{mailer: m}
}

// ProcessOTPEmailJob delivers a verification code email
func (s *MailSender) ProcessOTPEmailJob(ctx context.Context, job *queue.Job) error {
	email := job.MetaString(queue.MetaEmail)
	code := job.MetaString(queue.MetaOTP)
	if email == "" || code == "" {
		return fmt.Errorf("otp email job missing email or code")
	}
	if job.NotAfter == nil {
		return fmt.Errorf("otp email job missing expiry")
	}

	if err := s.mailer.SendOTP(ctx, job.UserID, email, job.MetaString(queue.MetaName), code, *job.NotAfter); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	log.Printf("Sent verification email for user %s", job.UserID)
	return nil
}

// ProcessWelcomeEmailJob delivers the post-verification welcome email
func (s *MailSender) ProcessWelcomeEmailJob(ctx context.Context, job *queue.Job) error {
	email := job.MetaString(queue.MetaEmail)
	if email == "" {
		return fmt.Errorf("welcome email job missing email")
	}

	if err := s.mailer.SendWelcome(ctx, job.UserID, email, job.MetaString(queue.MetaName)); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	log.Printf("Sent welcome email for user %s", job.UserID)
	return nil
}

// ProcessJob processes a job based on its type
func (s *MailSender) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	// An expired verification code is useless; drop the job silently.
	if job.IsExpired() {
		log.Printf("Job %s expired (NotAfter: %v), dropping", job.ID, job.NotAfter)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack expired job: %v", ackErr)
		}
		return nil
	}

	var err error
	switch job.Type {
	case queue.JobTypeOTPEmail:
		err = s.ProcessOTPEmailJob(ctx, job)
	case queue.JobTypeWelcomeEmail:
		err = s.ProcessWelcomeEmailJob(ctx, job)
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		return s.handleJobError(msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries transient failures and dead-letters the rest
func (s *MailSender) handleJobError(msg *queue.Message, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", job.Type, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", job.Type, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
