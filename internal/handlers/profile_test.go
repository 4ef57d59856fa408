package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/voxscribe/voxscribe-api/internal/models"
	"github.com/voxscribe/voxscribe-api/internal/request"
)

type profileFixture struct {
	users       *fakeUserRepo
	transcripts *fakeTranscriptRepo
	router      *mux.Router
	user        *models.User
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()

	users := newFakeUserRepo()
	transcripts := newFakeTranscriptRepo()
	handler := NewProfileHandler(users, transcripts, zap.NewNop())

	router := mux.NewRouter()
	handler.RegisterRoutes(router.PathPrefix("/auth").Subrouter())

	name := "Priya"
	user := &models.User{Email: "priya@example.com", Name: &name, EmailVerified: true}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return &profileFixture{users: users, transcripts: transcripts, router: router, user: user}
}

func (f *profileFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(request.WithUser(req.Context(), f.user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestGetProfile(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)

	// Seven records: stats count all of them, recent caps at five.
	for i := 0; i < 7; i++ {
		err := f.transcripts.Create(context.Background(), &models.Transcript{
			UserID:          f.user.ID,
			Text:            "note",
			DurationMinutes: 2,
			Cost:            1.51,
		})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/auth/profile", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var env struct {
		Data struct {
			User   models.PublicUser      `json:"user"`
			Stats  models.TranscriptStats `json:"stats"`
			Recent []models.Transcript    `json:"recent"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env.Data.User.Email != "priya@example.com" {
		t.Errorf("user email = %q, want priya@example.com", env.Data.User.Email)
	}
	if env.Data.Stats.TotalTranscripts != 7 {
		t.Errorf("total transcripts = %d, want 7", env.Data.Stats.TotalTranscripts)
	}
	if env.Data.Stats.TotalMinutes != 14 {
		t.Errorf("total minutes = %d, want 14", env.Data.Stats.TotalMinutes)
	}
	if len(env.Data.Recent) != 5 {
		t.Errorf("recent = %d records, want 5", len(env.Data.Recent))
	}
}

func TestGetProfile_EmptyHistory(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/auth/profile", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var env struct {
		Data struct {
			Stats  models.TranscriptStats `json:"stats"`
			Recent []models.Transcript    `json:"recent"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env.Data.Stats.TotalTranscripts != 0 {
		t.Errorf("total transcripts = %d, want 0", env.Data.Stats.TotalTranscripts)
	}
	if env.Data.Recent == nil {
		t.Error("recent must be an empty array, not null")
	}
}

func TestGetProfile_StoreFailure(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)
	f.transcripts.statsErr = context.DeadlineExceeded

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/auth/profile", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)

	payload, _ := json.Marshal(map[string]string{"name": "Priya S", "email": "Priya.S@Example.com"})
	req := httptest.NewRequest(http.MethodPut, "/auth/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := f.serve(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	stored, err := f.users.GetByID(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	if stored.Name == nil || *stored.Name != "Priya S" {
		t.Errorf("name = %v, want Priya S", stored.Name)
	}
	if stored.Email != "priya.s@example.com" {
		t.Errorf("email = %q, want normalized priya.s@example.com", stored.Email)
	}
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)

	other := &models.User{Email: "taken@example.com", EmailVerified: true}
	if err := f.users.Create(context.Background(), other); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"email": "taken@example.com"})
	req := httptest.NewRequest(http.MethodPut, "/auth/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := f.serve(req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	stored, _ := f.users.GetByID(context.Background(), f.user.ID)
	if stored.Email != "priya@example.com" {
		t.Errorf("email = %q, must be unchanged after conflict", stored.Email)
	}
}

func TestUpdateProfile_KeepOwnEmail(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)

	// Re-submitting the current address is not a conflict.
	payload, _ := json.Marshal(map[string]string{"email": "priya@example.com"})
	req := httptest.NewRequest(http.MethodPut, "/auth/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := f.serve(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestListUsers(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)

	hash := "secret-hash"
	other := &models.User{Email: "other@example.com", PasswordHash: &hash}
	if err := f.users.Create(context.Background(), other); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/auth/users", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret-hash")) {
		t.Fatal("password hashes must never appear in responses")
	}

	var env struct {
		Data struct {
			Users []models.PublicUser `json:"users"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(env.Data.Users) != 2 {
		t.Errorf("users = %d, want 2", len(env.Data.Users))
	}
}

func TestProfile_Unauthenticated(t *testing.T) {
	t.Parallel()
	f := newProfileFixture(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/profile"},
		{http.MethodGet, "/auth/users"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.path, rec.Code, http.StatusUnauthorized)
		}
	}
}
