package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/voxscribe/voxscribe-api/internal/queue"
)

// mockMailer records sends and can be made to fail
type mockMailer struct {
	otps     []string
	welcomes []string
	userIDs  []uuid.UUID
	err      error
}

func (m *mockMailer) SendOTP(_ context.Context, userID uuid.UUID, email, _ string, code string, _ time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.otps = append(m.otps, email+":"+code)
	m.userIDs = append(m.userIDs, userID)
	return nil
}

func (m *mockMailer) SendWelcome(_ context.Context, userID uuid.UUID, email, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.welcomes = append(m.welcomes, email)
	m.userIDs = append(m.userIDs, userID)
	return nil
}

func TestProcessOTPEmailJob(t *testing.T) {
	t.Parallel()

	m := &mockMailer{}
	sender := NewMailSender(m)

	userID := uuid.New()
	job := queue.NewOTPEmailJob(userID, "user@example.com", "Alice", "482916", time.Now().Add(10*time.Minute))
	if err := sender.ProcessOTPEmailJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessOTPEmailJob() returned error: %v", err)
	}

	if len(m.otps) != 1 || m.otps[0] != "user@example.com:482916" {
		t.Errorf("sent = %v, want the job's email and code", m.otps)
	}
	if len(m.userIDs) != 1 || m.userIDs[0] != userID {
		t.Errorf("user id = %v, want %s", m.userIDs, userID)
	}
}

func TestProcessOTPEmailJob_MissingMetadata(t *testing.T) {
	t.Parallel()

	sender := NewMailSender(&mockMailer{})

	tests := []struct {
		name string
		job  *queue.Job
	}{
		{"no metadata", queue.NewJob(queue.JobTypeOTPEmail, uuid.New())},
		{
			"missing code",
			func() *queue.Job {
				j := queue.NewJob(queue.JobTypeOTPEmail, uuid.New())
				j.Metadata[queue.MetaEmail] = "user@example.com"
				return j
			}(),
		},
		{
			"missing expiry",
			func() *queue.Job {
				j := queue.NewJob(queue.JobTypeOTPEmail, uuid.New())
				j.Metadata[queue.MetaEmail] = "user@example.com"
				j.Metadata[queue.MetaOTP] = "123456"
				return j
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := sender.ProcessOTPEmailJob(context.Background(), tt.job); err == nil {
				t.Error("ProcessOTPEmailJob() returned nil error for malformed job")
			}
		})
	}
}

func TestProcessWelcomeEmailJob(t *testing.T) {
	t.Parallel()

	m := &mockMailer{}
	sender := NewMailSender(m)

	job := queue.NewWelcomeEmailJob(uuid.New(), "user@example.com", "Bob")
	if err := sender.ProcessWelcomeEmailJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessWelcomeEmailJob() returned error: %v", err)
	}
	if len(m.welcomes) != 1 || m.welcomes[0] != "user@example.com" {
		t.Errorf("sent = %v, want the job's email", m.welcomes)
	}
}

func TestProcessWelcomeEmailJob_MailerFailure(t *testing.T) {
	t.Parallel()

	sender := NewMailSender(&mockMailer{err: errors.New("smtp down")})

	job := queue.NewWelcomeEmailJob(uuid.New(), "user@example.com", "Bob")
	if err := sender.ProcessWelcomeEmailJob(context.Background(), job); err == nil {
		t.Error("ProcessWelcomeEmailJob() returned nil error when mailer failed")
	}
}
