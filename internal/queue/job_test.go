package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewOTPEmailJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	expiresAt := time.Now().Add(10 * time.Minute)

	job := NewOTPEmailJob(userID, "user@example.com", "Alice", "482916", expiresAt)

	if job.Type != JobTypeOTPEmail {
		t.Errorf("Type = %v, want %v", job.Type, JobTypeOTPEmail)
	}
	if job.UserID != userID {
		t.Errorf("UserID = %v, want %v", job.UserID, userID)
	}
	if job.NotAfter == nil || !job.NotAfter.Equal(expiresAt) {
		t.Errorf("NotAfter = %v, want code expiry %v", job.NotAfter, expiresAt)
	}
	if got := job.MetaString(MetaEmail); got != "user@example.com" {
		t.Errorf("email metadata = %q", got)
	}
	if got := job.MetaString(MetaName); got != "Alice" {
		t.Errorf("name metadata = %q", got)
	}
	if got := job.MetaString(MetaOTP); got != "482916" {
		t.Errorf("otp metadata = %q", got)
	}
	if job.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", job.MaxRetries)
	}
}

func TestNewWelcomeEmailJob(t *testing.T) {
	t.Parallel()

	job := NewWelcomeEmailJob(uuid.New(), "user@example.com", "Bob")

	if job.Type != JobTypeWelcomeEmail {
		t.Errorf("Type = %v, want %v", job.Type, JobTypeWelcomeEmail)
	}
	if job.NotAfter != nil {
		t.Error("welcome jobs should not expire")
	}
	if got := job.MetaString(MetaOTP); got != "" {
		t.Errorf("otp metadata = %q, want empty", got)
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{"no window", nil, nil, true},
		{"not before in past", &past, nil, true},
		{"not before in future", &future, nil, false},
		{"not after in future", nil, &future, true},
		{"not after in past", nil, &past, false},
		{"inside window", &past, &future, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewJob(JobTypeOTPEmail, uuid.New())
			job.NotBefore = tt.notBefore
			job.NotAfter = tt.notAfter
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeOTPEmail, uuid.New())
	if job.IsExpired() {
		t.Error("job with no NotAfter reported as expired")
	}

	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	if !job.IsExpired() {
		t.Error("job past its NotAfter not reported as expired")
	}
}

func TestJob_Retries(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeWelcomeEmail, uuid.New())
	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false after %d retries, want true", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("CanRetry() = true after exhausting retries")
	}
}

func TestJob_RoundTripsThroughJSON(t *testing.T) {
	t.Parallel()

	expiresAt := time.Now().Add(10 * time.Minute).Truncate(time.Millisecond)
	job := NewOTPEmailJob(uuid.New(), "user@example.com", "Alice", "123456", expiresAt)

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Job
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.ID != job.ID || got.Type != job.Type || got.UserID != job.UserID {
		t.Error("identity fields did not survive the wire")
	}
	if got.MetaString(MetaOTP) != "123456" {
		t.Errorf("otp metadata = %q after round trip", got.MetaString(MetaOTP))
	}
	if got.NotAfter == nil || !got.NotAfter.Equal(expiresAt) {
		t.Errorf("NotAfter = %v after round trip, want %v", got.NotAfter, expiresAt)
	}
}
