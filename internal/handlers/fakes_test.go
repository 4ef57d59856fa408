package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/models"
	"github.com/voxscribe/voxscribe-api/internal/services/speech"
)

// fakeUserRepo is an in-memory user store for handler tests
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = database.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeUserRepo) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeUserRepo) LinkGoogleID(_ context.Context, id uuid.UUID, googleID string, avatarURL *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.GoogleID = &googleID
	if avatarURL != nil {
		u.AvatarURL = avatarURL
	}
	return nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.ID]
	if !ok {
		return database.ErrNotFound
	}
	u.Name = user.Name
	u.Email = user.Email
	u.AvatarURL = user.AvatarURL
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) SetOTP(_ context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.OTPCode = &code
	u.OTPExpiresAt = &expiresAt
	return nil
}

func (f *fakeUserRepo) MarkVerified(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.EmailVerified = true
	u.OTPCode = nil
	u.OTPExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (f *fakeUserRepo) TouchLastSeen(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	now := time.Now()
	u.LastSeenAt = &now
	return nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

// fakeTranscriptRepo is an in-memory transcript store for handler tests
type fakeTranscriptRepo struct {
	mu          sync.Mutex
	transcripts []*models.Transcript
	createErr   error
	statsErr    error
}

func newFakeTranscriptRepo() *fakeTranscriptRepo {
	return &fakeTranscriptRepo{}
}

func (f *fakeTranscriptRepo) Create(_ context.Context, t *models.Transcript) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	clone := *t
	f.transcripts = append(f.transcripts, &clone)
	return nil
}

func (f *fakeTranscriptRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Transcript{}
	// Insertion order is oldest first; serve newest first.
	for i := len(f.transcripts) - 1; i >= 0; i-- {
		if f.transcripts[i].UserID == userID {
			clone := *f.transcripts[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeTranscriptRepo) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transcript, error) {
	all, err := f.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeTranscriptRepo) DeleteByIDForUser(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.transcripts {
		if t.ID == id && t.UserID == userID {
			f.transcripts = append(f.transcripts[:i], f.transcripts[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeTranscriptRepo) StatsByUser(_ context.Context, userID uuid.UUID) (*models.TranscriptStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	stats := &models.TranscriptStats{}
	monthStart := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, t := range f.transcripts {
		if t.UserID != userID {
			continue
		}
		stats.TotalTranscripts++
		stats.TotalCost += t.Cost
		stats.TotalMinutes += t.DurationMinutes
		if !t.CreatedAt.Before(monthStart) {
			stats.ThisMonthCount++
		}
	}
	return stats, nil
}

// fakeRecognizer returns canned transcription results. When fn is set it
// takes precedence, so tests can key the result off the request.
type fakeRecognizer struct {
	text string
	err  error
	fn   func(speech.Request) (*speech.Result, error)
}

func (f *fakeRecognizer) Transcribe(_ context.Context, req speech.Request) (*speech.Result, error) {
	if f.fn != nil {
		return f.fn(req)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &speech.Result{Text: f.text}, nil
}
