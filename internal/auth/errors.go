package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for any login failure where the
	// caller must not learn whether the account exists, has no password,
	// or the password was simply wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotVerified is returned when a password login is correct but the
	// email address has not completed OTP verification.
	ErrNotVerified = errors.New("email not verified")

	// ErrEmailTaken is returned when signing up with an email that is
	// already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrCodeInvalidOrExpired is returned when an OTP does not match or
	// its validity window has passed.
	ErrCodeInvalidOrExpired = errors.New("verification code invalid or expired")

	// ErrAlreadyVerified is returned when verification is attempted on an
	// account that already completed it.
	ErrAlreadyVerified = errors.New("email already verified")
)
