package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/voxscribe/voxscribe-api/internal/billing"
	"github.com/voxscribe/voxscribe-api/internal/intake"
	"github.com/voxscribe/voxscribe-api/internal/models"
	"github.com/voxscribe/voxscribe-api/internal/request"
	"github.com/voxscribe/voxscribe-api/internal/services/speech"
)

type transcriptionFixture struct {
	transcripts *fakeTranscriptRepo
	recognizer  *fakeRecognizer
	router      *mux.Router
	user        *models.User
}

func newTranscriptionFixture(t *testing.T) *transcriptionFixture {
	t.Helper()

	stager, err := intake.NewStager(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create stager: %v", err)
	}

	transcripts := newFakeTranscriptRepo()
	recognizer := &fakeRecognizer{text: "hello world"}
	handler := NewTranscriptionHandler(transcripts, stager, recognizer, billing.NewCalculator(0, 0, 0), zap.NewNop())

	router := mux.NewRouter()
	handler.RegisterRoutes(router.PathPrefix("/api").Subrouter())

	return &transcriptionFixture{
		transcripts: transcripts,
		recognizer:  recognizer,
		router:      router,
		user:        &models.User{ID: uuid.New(), Email: "user@example.com", EmailVerified: true},
	}
}

func (f *transcriptionFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(request.WithUser(req.Context(), f.user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, filename, language string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile(intake.FileFieldName, filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			t.Fatalf("failed to write language field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestTranscribe(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	rec := f.serve(multipartUpload(t, "my recording.m4a", "en", []byte("not real audio")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var env struct {
		Success bool              `json:"success"`
		Data    models.Transcript `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env.Data.Text != "hello world" {
		t.Errorf("text = %q, want %q", env.Data.Text, "hello world")
	}
	if env.Data.Language != "en" {
		t.Errorf("language = %q, want en", env.Data.Language)
	}
	// Unprobeable content still consumes the one-minute minimum.
	if env.Data.DurationMinutes != 1 {
		t.Errorf("duration = %d, want 1", env.Data.DurationMinutes)
	}
	if want := 0.76; env.Data.Cost != want {
		t.Errorf("cost = %v, want %v", env.Data.Cost, want)
	}
	if env.Data.Filename == nil || *env.Data.Filename != "my_recording.m4a" {
		t.Errorf("filename = %v, want my_recording.m4a", env.Data.Filename)
	}
	if env.Data.ID == uuid.Nil {
		t.Error("transcript must get an id")
	}
}

func TestTranscribe_ConcurrentUploads(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	// Key each result off the uploaded filename so any mix-up between the
	// two in-flight requests is visible in the stored text.
	f.recognizer.fn = func(req speech.Request) (*speech.Result, error) {
		return &speech.Result{Text: "transcript of " + req.Filename}, nil
	}

	uploads := []struct {
		filename string
		content  []byte
	}{
		{"alpha.wav", []byte("aaaa")},
		{"bravo.wav", bytes.Repeat([]byte("b"), 1600)},
	}

	// Build the requests up front; the helper may fail the test and must
	// not do so from a spawned goroutine.
	reqs := make([]*http.Request, len(uploads))
	for i, up := range uploads {
		reqs[i] = multipartUpload(t, up.filename, "", up.content)
	}

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, len(uploads))
	for i := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.serve(reqs[i])
		}()
	}
	wg.Wait()

	for i, rec := range results {
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload %d status = %d, want %d: %s", i, rec.Code, http.StatusCreated, rec.Body.String())
		}
	}

	stored, err := f.transcripts.ListByUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("ListByUser() returned error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d transcripts, want 2", len(stored))
	}

	byName := map[string]*models.Transcript{}
	for _, tr := range stored {
		if tr.Filename == nil {
			t.Fatal("stored transcript missing filename")
		}
		byName[*tr.Filename] = tr
	}
	for _, up := range uploads {
		tr, ok := byName[up.filename]
		if !ok {
			t.Fatalf("no transcript stored for %s", up.filename)
		}
		if want := "transcript of " + up.filename; tr.Text != want {
			t.Errorf("%s text = %q, want %q", up.filename, tr.Text, want)
		}
		// Each record is billed on its own. Unprobeable content hits the
		// one-minute minimum, so both come out at the minimum rate.
		if tr.DurationMinutes != 1 {
			t.Errorf("%s duration = %d, want 1", up.filename, tr.DurationMinutes)
		}
		if tr.Cost != 0.76 {
			t.Errorf("%s cost = %v, want 0.76", up.filename, tr.Cost)
		}
		if tr.FileSizeBytes == nil || *tr.FileSizeBytes != int64(len(up.content)) {
			t.Errorf("%s file size = %v, want %d", up.filename, tr.FileSizeBytes, len(up.content))
		}
		if tr.UserID != f.user.ID {
			t.Errorf("%s user = %s, want %s", up.filename, tr.UserID, f.user.ID)
		}
	}
}

func TestTranscribe_NoFile(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	rec := f.serve(multipartUpload(t, "", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTranscribe_BadLanguageHint(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	rec := f.serve(multipartUpload(t, "a.wav", "not a language!", []byte("x")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTranscribe_RecognizerFailure(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)
	f.recognizer.err = errors.New("upstream exploded")

	rec := f.serve(multipartUpload(t, "a.wav", "", []byte("x")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("exploded")) {
		t.Error("provider error detail must not leak to the client")
	}

	list, err := f.transcripts.ListByUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("failed transcriptions must not be persisted, got %d records", len(list))
	}
}

func TestTranscribe_Unauthenticated(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	req := multipartUpload(t, "a.wav", "", []byte("x"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSaveText(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	payload, _ := json.Marshal(map[string]string{"text": "  dictated note \x00 with junk  "})
	req := httptest.NewRequest(http.MethodPost, "/api/history", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := f.serve(req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var env struct {
		Data models.Transcript `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env.Data.Text != "dictated note  with junk" {
		t.Errorf("text = %q, want control characters stripped and whitespace trimmed", env.Data.Text)
	}
	if env.Data.DurationMinutes != 0 || env.Data.Cost != 0 {
		t.Errorf("direct saves bill nothing, got %d min / %v cost", env.Data.DurationMinutes, env.Data.Cost)
	}
	if env.Data.Filename != nil {
		t.Errorf("filename = %v, want nil for direct saves", env.Data.Filename)
	}
}

func TestSaveText_Blank(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{}`},
		{"whitespace only", `{"text": "   "}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/history", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			rec := f.serve(req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestListHistory(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	other := uuid.New()
	for _, seed := range []struct {
		user uuid.UUID
		text string
	}{
		{f.user.ID, "first"},
		{f.user.ID, "second"},
		{other, "foreign"},
	} {
		err := f.transcripts.Create(context.Background(), &models.Transcript{UserID: seed.user, Text: seed.text})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	for _, path := range []string{"/api/transcriptions", "/api/history"} {
		rec := f.serve(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
		var env struct {
			Data []models.Transcript `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(env.Data) != 2 {
			t.Fatalf("%s returned %d records, want 2", path, len(env.Data))
		}
		if env.Data[0].Text != "second" || env.Data[1].Text != "first" {
			t.Errorf("%s order = %q, %q; want newest first", path, env.Data[0].Text, env.Data[1].Text)
		}
	}
}

func TestDeleteHistory(t *testing.T) {
	t.Parallel()
	f := newTranscriptionFixture(t)

	mine := &models.Transcript{UserID: f.user.ID, Text: "mine"}
	if err := f.transcripts.Create(context.Background(), mine); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	foreign := &models.Transcript{UserID: uuid.New(), Text: "foreign"}
	if err := f.transcripts.Create(context.Background(), foreign); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// A record owned by someone else looks exactly like a missing one.
	rec := f.serve(httptest.NewRequest(http.MethodDelete, "/api/history/"+foreign.ID.String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if list, _ := f.transcripts.ListByUser(context.Background(), foreign.UserID); len(list) != 1 {
		t.Error("foreign record must be untouched")
	}

	rec = f.serve(httptest.NewRequest(http.MethodDelete, "/api/history/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = f.serve(httptest.NewRequest(http.MethodDelete, "/api/history/"+mine.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = f.serve(httptest.NewRequest(http.MethodDelete, "/api/history/"+mine.ID.String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
