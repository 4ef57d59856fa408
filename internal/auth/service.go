package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/models"
)

// Notifier delivers account lifecycle emails. Delivery is best-effort: the
// service logs failures and never fails the triggering operation on them.
type Notifier interface {
	SendOTP(ctx context.Context, userID uuid.UUID, email, name, code string, expiresAt time.Time) error
	SendWelcome(ctx context.Context, userID uuid.UUID, email, name string) error
}

// Service implements signup, login and email verification.
type Service struct {
	users    database.UserRepositoryInterface
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates an auth service. notifier may be nil when no mail
// transport is configured; verification codes are then only visible in the
// database.
func NewService(users database.UserRepositoryInterface, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Signup registers a new email/password account and issues a verification
// code. The account cannot log in until the code is confirmed.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	email = database.NormalizeEmail(email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}

	hashStr := string(hash)
	expiresAt := time.Now().Add(OTPTTL)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         optional(name),
		PasswordHash: &hashStr,
		OTPCode:      &code,
		OTPExpiresAt: &expiresAt,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.notifyOTP(ctx, user, code, expiresAt)

	return user, nil
}

// Login checks email/password credentials. All credential failures come
// back as ErrInvalidCredentials so callers cannot probe for accounts or for
// Google-only accounts without a password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrNotVerified
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil && s.logger != nil {
		s.logger.Warn("Failed to record last login", zap.Error(err))
	}

	return user, nil
}

// VerifyOTP confirms a verification code and activates the account. The
// code check is constant-time; match and expiry failures are merged into
// ErrCodeInvalidOrExpired.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if user.EmailVerified {
		return nil, ErrAlreadyVerified
	}

	if !user.HasActiveOTP(time.Now()) {
		return nil, ErrCodeInvalidOrExpired
	}
	if subtle.ConstantTimeCompare([]byte(*user.OTPCode), []byte(code)) != 1 {
		return nil, ErrCodeInvalidOrExpired
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to mark account verified: %w", err)
	}
	user.EmailVerified = true
	user.OTPCode = nil
	user.OTPExpiresAt = nil

	s.notifyWelcome(ctx, user)

	return user, nil
}

// ResendOTP issues a fresh verification code for an unverified account,
// invalidating any previous one.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.ErrNotFound
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	code, err := GenerateOTP()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(OTPTTL)

	if err := s.users.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	s.notifyOTP(ctx, user, code, expiresAt)

	return nil
}

// SignInWithGoogle reconciles verified Google claims against the user
// store: match by Google subject first, then by email (linking the subject
// to the existing account), and only then create a fresh account. Google
// asserts the email, so accounts reached this way are verified.
func (s *Service) SignInWithGoogle(ctx context.Context, claims *models.GoogleClaims) (*models.User, error) {
	if claims.Sub == "" || claims.Email == "" {
		return nil, fmt.Errorf("google claims missing subject or email")
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("google account email is unverified")
	}

	user, err := s.users.GetByGoogleID(ctx, claims.Sub)
	if err == nil {
		s.recordLogin(ctx, user)
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up google account: %w", err)
	}

	user, err = s.users.GetByEmail(ctx, claims.Email)
	if err == nil {
		if err := s.users.LinkGoogleID(ctx, user.ID, claims.Sub, optional(claims.Picture)); err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		user.GoogleID = &claims.Sub
		if avatar := optional(claims.Picture); avatar != nil {
			user.AvatarURL = avatar
		}
		if !user.EmailVerified {
			if err := s.users.MarkVerified(ctx, user.ID); err != nil {
				return nil, fmt.Errorf("failed to mark account verified: %w", err)
			}
			user.EmailVerified = true
			user.OTPCode = nil
			user.OTPExpiresAt = nil
		}
		s.recordLogin(ctx, user)
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	user = &models.User{
		ID:            uuid.New(),
		GoogleID:      &claims.Sub,
		Email:         claims.Email,
		Name:          optional(claims.Name),
		AvatarURL:     optional(claims.Picture),
		EmailVerified: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.notifyWelcome(ctx, user)
	s.recordLogin(ctx, user)

	return user, nil
}

func (s *Service) recordLogin(ctx context.Context, user *models.User) {
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil && s.logger != nil {
		s.logger.Warn("Failed to record last login", zap.Error(err))
	}
}

func (s *Service) notifyOTP(ctx context.Context, user *models.User, code string, expiresAt time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendOTP(ctx, user.ID, user.Email, displayName(user), code, expiresAt); err != nil && s.logger != nil {
		s.logger.Warn("Failed to send verification code email", zap.Error(err))
	}
}

func (s *Service) notifyWelcome(ctx context.Context, user *models.User) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendWelcome(ctx, user.ID, user.Email, displayName(user)); err != nil && s.logger != nil {
		s.logger.Warn("Failed to send welcome email", zap.Error(err))
	}
}

func displayName(user *models.User) string {
	if user.Name != nil && *user.Name != "" {
		return *user.Name
	}
	return user.Email
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
