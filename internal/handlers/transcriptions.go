package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/voxscribe/voxscribe-api/internal/billing"
	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/intake"
	"github.com/voxscribe/voxscribe-api/internal/models"
	"github.com/voxscribe/voxscribe-api/internal/request"
	"github.com/voxscribe/voxscribe-api/internal/services/speech"
	"github.com/voxscribe/voxscribe-api/internal/validation"
)

// MaxTranscriptTextLength caps direct text saves
const MaxTranscriptTextLength = 100000

// TranscriptionHandler handles audio transcription and history requests
type TranscriptionHandler struct {
	transcripts database.TranscriptRepositoryInterface
	stager      *intake.Stager
	recognizer  speech.Recognizer
	calculator  billing.Calculator
	logger      *zap.Logger
}

// NewTranscriptionHandler creates a new transcription handler
func NewTranscriptionHandler(
	transcripts database.TranscriptRepositoryInterface,
	stager *intake.Stager,
	recognizer speech.Recognizer,
	calculator billing.Calculator,
	log *zap.Logger,
) *TranscriptionHandler {
	return &TranscriptionHandler{
		transcripts: transcripts,
		stager:      stager,
		recognizer:  recognizer,
		calculator:  calculator,
		logger:      log,
	}
}

// RegisterRoutes registers transcription routes on the given router
// The router should already carry the /api prefix and session auth
func (h *TranscriptionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/transcriptions", h.Transcribe).Methods("POST")
	r.HandleFunc("/transcriptions", h.ListHistory).Methods("GET")
	r.HandleFunc("/history", h.ListHistory).Methods("GET")
	r.HandleFunc("/history", h.SaveText).Methods("POST")
	r.HandleFunc("/history/{id}", h.DeleteHistory).Methods("DELETE")
}

// SaveTextRequest represents a direct text save, bypassing recognition
type SaveTextRequest struct {
	Text     string `json:"text" validate:"required"`
	Language string `json:"language,omitempty" validate:"omitempty,language_hint"`
}

// Transcribe handles POST /api/transcriptions: stage the uploaded audio,
// measure its duration, run speech recognition, price the result and persist
// it. The staged file is removed on every exit path.
func (h *TranscriptionHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	file, header, err := r.FormFile(intake.FileFieldName)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "No audio file uploaded")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	language := r.FormValue("language")
	if err := validation.ValidateLanguageHint(language); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if language == "" {
		language = models.LanguageAuto
	}

	staged, err := h.stager.Stage(file, header)
	if err != nil {
		h.logger.Error("Failed to stage upload", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to store uploaded file")
		return
	}
	defer func() {
		if err := staged.Remove(); err != nil {
			h.logger.Warn("Failed to remove staged file", zap.String("path", staged.Path), zap.Error(err))
		}
	}()

	// Duration extraction never fails the request; an unreadable file
	// bills the one-minute minimum.
	durationSeconds := intake.Duration(r.Context(), staged.Path)

	audio, err := staged.Open()
	if err != nil {
		h.logger.Error("Failed to reopen staged file", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to read uploaded file")
		return
	}
	defer func() {
		_ = audio.Close()
	}()

	started := time.Now()
	result, err := h.recognizer.Transcribe(r.Context(), speech.Request{
		File:        audio,
		Filename:    staged.OriginalName,
		ContentType: staged.ContentType,
		Language:    language,
	})
	if err != nil {
		h.logger.Error("Transcription failed",
			zap.String("filename", intake.SanitizeFilename(staged.OriginalName)),
			zap.Error(err))
		detail := "Speech recognition failed"
		if speech.IsRateLimitError(err) || speech.IsQuotaError(err) {
			detail = "Speech recognition is temporarily unavailable"
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", detail)
		return
	}
	processingSecs := int(time.Since(started).Seconds())

	minutes := billing.BillableMinutes(durationSeconds)
	cost := h.calculator.Cost(minutes)

	filename := intake.SanitizeFilename(staged.OriginalName)
	transcript := &models.Transcript{
		UserID:          user.ID,
		Text:            result.Text,
		Filename:        &filename,
		Language:        language,
		DurationMinutes: billing.SafeMinutes(minutes),
		Cost:            billing.SafeCost(cost),
		FileSizeBytes:   &staged.Size,
		ProcessingSecs:  &processingSecs,
	}
	if err := h.transcripts.Create(r.Context(), transcript); err != nil {
		h.logger.Error("Failed to persist transcript", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save transcript")
		return
	}

	respondJSON(w, http.StatusCreated, transcript)
}

// ListHistory handles GET /api/transcriptions and GET /api/history
func (h *TranscriptionHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	transcripts, err := h.transcripts.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list transcripts", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve history")
		return
	}
	if transcripts == nil {
		transcripts = []*models.Transcript{}
	}

	respondJSON(w, http.StatusOK, transcripts)
}

// SaveText handles POST /api/history: persist text directly without audio.
// Direct saves bill zero minutes and zero cost.
func (h *TranscriptionHandler) SaveText(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req SaveTextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	text := validation.SanitizeText(req.Text)
	if text == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text is required and cannot be empty after sanitization")
		return
	}
	if len(text) > MaxTranscriptTextLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text exceeds maximum length")
		return
	}

	language := req.Language
	if language == "" {
		language = models.LanguageAuto
	}

	transcript := &models.Transcript{
		UserID:   user.ID,
		Text:     text,
		Language: language,
	}
	if err := h.transcripts.Create(r.Context(), transcript); err != nil {
		h.logger.Error("Failed to persist transcript", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save transcript")
		return
	}

	respondJSON(w, http.StatusCreated, transcript)
}

// DeleteHistory handles DELETE /api/history/{id}. A record owned by another
// user is indistinguishable from a missing one.
func (h *TranscriptionHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid transcript ID")
		return
	}

	if err := h.transcripts.DeleteByIDForUser(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Transcript not found")
			return
		}
		h.logger.Error("Failed to delete transcript", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete transcript")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Transcript deleted"})
}
