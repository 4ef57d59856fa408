package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/models"
	"github.com/voxscribe/voxscribe-api/internal/request"
	"github.com/voxscribe/voxscribe-api/internal/validation"
)

// recentTranscriptLimit is how many recent transcripts the profile includes
const recentTranscriptLimit = 5

// ProfileHandler handles profile and user directory requests
type ProfileHandler struct {
	users       database.UserRepositoryInterface
	transcripts database.TranscriptRepositoryInterface
	logger      *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(users database.UserRepositoryInterface, transcripts database.TranscriptRepositoryInterface, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, transcripts: transcripts, logger: log}
}

// RegisterRoutes registers profile routes on the given router. All routes
// here require an authenticated session.
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
	r.HandleFunc("/users", h.ListUsers).Methods("GET")
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// GetProfile handles GET /auth/profile: the user's account plus usage stats
// and their most recent transcripts.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	stats, err := h.transcripts.StatsByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to load usage stats", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	recent, err := h.transcripts.RecentByUser(r.Context(), user.ID, recentTranscriptLimit)
	if err != nil {
		h.logger.Error("Failed to load recent transcripts", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}
	if recent == nil {
		recent = []*models.Transcript{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":   user.Public(),
		"stats":  stats,
		"recent": recent,
	})
}

// UpdateProfile handles PUT /auth/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			user.Name = nil
		} else {
			user.Name = &name
		}
	}
	if req.Email != nil {
		email := database.NormalizeEmail(*req.Email)
		if email != user.Email {
			existing, err := h.users.GetByEmail(r.Context(), email)
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				h.logger.Error("Failed to check email availability", zap.Error(err))
				respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update profile")
				return
			}
			if existing != nil && existing.ID != user.ID {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "An account with this email already exists")
				return
			}
			user.Email = email
		}
	}

	if err := h.users.UpdateProfile(r.Context(), user); err != nil {
		h.logger.Error("Failed to update profile", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// ListUsers handles GET /auth/users: public summaries of every account
func (h *ProfileHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if request.UserFromContext(r) == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list users")
		return
	}

	public := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": public})
}
