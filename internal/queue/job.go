package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeOTPEmail is a job for delivering a verification code email
	JobTypeOTPEmail JobType = "otp_email"
	// JobTypeWelcomeEmail is a job for delivering the post-verification welcome email
	JobTypeWelcomeEmail JobType = "welcome_email"
)

// Metadata keys used by mail jobs.
const (
	MetaEmail = "email"
	MetaName  = "name"
	MetaOTP   = "otp"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`   // Job-specific data
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// NewOTPEmailJob creates a verification-code delivery job. The job expires
// together with the code: once expiresAt passes, delivering the email would
// only confuse the user, so NotAfter drops it instead.
func NewOTPEmailJob(userID uuid.UUID, email, name, code string, expiresAt time.Time) *Job {
	job := NewJob(JobTypeOTPEmail, userID)
	job.NotAfter = &expiresAt
	job.Metadata[MetaEmail] = email
	job.Metadata[MetaName] = name
	job.Metadata[MetaOTP] = code
	return job
}

// NewWelcomeEmailJob creates a welcome email delivery job.
func NewWelcomeEmailJob(userID uuid.UUID, email, name string) *Job {
	job := NewJob(JobTypeWelcomeEmail, userID)
	job.Metadata[MetaEmail] = email
	job.Metadata[MetaName] = name
	return job
}

// MetaString returns a string metadata value, or "" when absent.
func (j *Job) MetaString(key string) string {
	if j.Metadata == nil {
		return ""
	}
	if s, ok := j.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	// Check NotBefore
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	// Check NotAfter
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
