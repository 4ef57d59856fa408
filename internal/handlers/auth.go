package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/voxscribe/voxscribe-api/internal/auth"
	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/logger"
	"github.com/voxscribe/voxscribe-api/internal/models"
	"github.com/voxscribe/voxscribe-api/internal/services/googleauth"
	"github.com/voxscribe/voxscribe-api/internal/session"
	"github.com/voxscribe/voxscribe-api/internal/validation"
)

// stateCookieName carries the OAuth state nonce between the consent redirect
// and the callback
const stateCookieName = "oauth_state"

// stateCookieTTL bounds how long a pending Google sign-in stays valid
const stateCookieTTL = 10 * time.Minute

// AuthHandler handles authentication requests: local signup/login with email
// verification, Google sign-in, and session lifecycle.
type AuthHandler struct {
	service  *auth.Service
	users    database.UserRepositoryInterface
	sessions *session.Store
	cookies  session.CookiePolicy
	google   *googleauth.Client
	verifier *googleauth.Verifier

	frontendURL string
	// otpEcho includes the verification code in the signup response when no
	// mail transport is configured. Never enabled in production.
	otpEcho bool
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler. google and verifier may be nil
// when Google OAuth is not configured; the Google routes then respond 404.
func NewAuthHandler(
	service *auth.Service,
	users database.UserRepositoryInterface,
	sessions *session.Store,
	cookies session.CookiePolicy,
	google *googleauth.Client,
	verifier *googleauth.Verifier,
	frontendURL string,
	otpEcho bool,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:     service,
		users:       users,
		sessions:    sessions,
		cookies:     cookies,
		google:      google,
		verifier:    verifier,
		frontendURL: frontendURL,
		otpEcho:     otpEcho,
		logger:      log,
	}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/signup", h.Signup).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/verify-otp", h.VerifyOTP).Methods("POST")
	r.HandleFunc("/resend-otp", h.ResendOTP).Methods("POST")
	r.HandleFunc("/session", h.Session).Methods("GET")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	if h.google != nil && h.verifier != nil {
		r.HandleFunc("/google", h.GoogleLogin).Methods("GET")
		r.HandleFunc("/google/callback", h.GoogleCallback).Methods("GET")
	}
}

// SignupRequest represents a signup request
type SignupRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPRequest represents a verification code submission
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,otp"`
}

// ResendOTPRequest represents a request for a fresh verification code
type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "An account with this email already exists")
			return
		}
		h.logger.Error("Signup failed", zap.String("email", logger.RedactEmail(req.Email)), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create account")
		return
	}

	data := map[string]any{
		"user":    user.Public(),
		"message": "Verification code sent to your email",
	}
	if h.otpEcho && user.OTPCode != nil {
		// No mail transport available: surface the code so development
		// setups can complete verification.
		data["otp"] = *user.OTPCode
	}
	respondJSON(w, http.StatusCreated, data)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNotVerified):
			respondJSONError(w, http.StatusForbidden, "verification_required", "Please verify your email before logging in")
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
		default:
			h.logger.Error("Login failed", zap.String("email", logger.RedactEmail(req.Email)), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to log in")
		}
		return
	}

	if !h.establishSession(w, r, user) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// VerifyOTP handles POST /auth/verify-otp. Successful verification logs the
// user in directly, matching the signup flow's single round trip.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondJSONError(w, http.StatusNotFound, "Not Found", "No account found for this email")
		case errors.Is(err, auth.ErrAlreadyVerified):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Email is already verified")
		case errors.Is(err, auth.ErrCodeInvalidOrExpired):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Verification code is invalid or expired")
		default:
			h.logger.Error("Verification failed", zap.String("email", logger.RedactEmail(req.Email)), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to verify email")
		}
		return
	}

	if !h.establishSession(w, r, user) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":    user.Public(),
		"message": "Email verified successfully",
	})
}

// ResendOTP handles POST /auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req ResendOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.ResendOTP(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondJSONError(w, http.StatusNotFound, "Not Found", "No account found for this email")
		case errors.Is(err, auth.ErrAlreadyVerified):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Email is already verified")
		default:
			h.logger.Error("Resend failed", zap.String("email", logger.RedactEmail(req.Email)), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resend verification code")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Verification code sent"})
}

// Session handles GET /auth/session. It always answers 200; an absent or
// invalid session yields a null user rather than an error so frontends can
// probe without handling failures.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sid := session.FromRequest(r)
	if sid == "" {
		respondJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	userID, err := h.sessions.Get(r.Context(), sid)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalid) {
			h.cookies.Clear(w)
			respondJSON(w, http.StatusOK, map[string]any{"user": nil})
			return
		}
		h.logger.Error("Session lookup failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check session")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Session points at a deleted account. Destroy it.
			_ = h.sessions.Delete(r.Context(), sid)
			h.cookies.Clear(w)
			respondJSON(w, http.StatusOK, map[string]any{"user": nil})
			return
		}
		h.logger.Error("Session user lookup failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// Logout handles POST /auth/logout. Idempotent: logging out without a
// session still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := session.FromRequest(r); sid != "" {
		if err := h.sessions.Delete(r.Context(), sid); err != nil {
			h.logger.Warn("Failed to delete session on logout", zap.Error(err))
		}
	}
	h.cookies.Clear(w)
	respondJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

// GoogleLogin handles GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := googleauth.NewState()
	if err != nil {
		h.logger.Error("Failed to generate OAuth state", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to start Google sign-in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback. Any provider or state
// failure redirects back to the app root; only a successful sign-in lands
// on the home page with a session cookie set.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	clearState := func() {
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    "",
			Path:     "/auth/google",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	fail := func(reason string, err error) {
		h.logger.Warn("Google sign-in failed", zap.String("reason", reason), zap.Error(err))
		clearState()
		http.Redirect(w, r, h.frontendURL+"/", http.StatusFound)
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		fail("missing state cookie", err)
		return
	}
	if state := r.URL.Query().Get("state"); state == "" || state != stateCookie.Value {
		fail("state mismatch", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		fail("missing authorization code", nil)
		return
	}

	token, err := h.google.ExchangeCode(r.Context(), code)
	if err != nil {
		fail("code exchange failed", err)
		return
	}

	rawIDToken, err := googleauth.IDToken(token)
	if err != nil {
		fail("missing id token", err)
		return
	}

	claims, err := h.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		fail("id token verification failed", err)
		return
	}

	user, err := h.service.SignInWithGoogle(r.Context(), claims)
	if err != nil {
		fail("account resolution failed", err)
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		fail("session creation failed", err)
		return
	}

	clearState()
	h.cookies.Write(w, sid)
	http.Redirect(w, r, h.frontendURL+"/home", http.StatusFound)
}

// establishSession creates a session for the user and writes its cookie.
// On failure it responds 500 and returns false.
func (h *AuthHandler) establishSession(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create session")
		return false
	}
	h.cookies.Write(w, sid)
	return true
}

// decodeAndValidate decodes a JSON request body into req and runs struct
// validation, writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	if err := validation.Validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+validationErrors[0].Error())
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}
