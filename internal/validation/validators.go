package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	// MinPasswordLength is the minimum accepted password length
	MinPasswordLength = 6
	// MaxPasswordLength caps passwords well below bcrypt's 72-byte input limit
	MaxPasswordLength = 72
	// OTPLength is the exact length of a verification code
	OTPLength = 6
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("otp", validateOTP); err != nil {
		panic(fmt.Sprintf("failed to register otp validator: %v", err))
	}
	if err := Validate.RegisterValidation("language_hint", validateLanguageHint); err != nil {
		panic(fmt.Sprintf("failed to register language_hint validator: %v", err))
	}
}

// validateOTP validates that a string is a 6-digit verification code
func validateOTP(fl validator.FieldLevel) bool {
	return ValidateOTP(fl.Field().String()) == nil
}

// validateLanguageHint validates that a string is a plausible language hint
func validateLanguageHint(fl validator.FieldLevel) bool {
	return ValidateLanguageHint(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateOTP validates a verification code: exactly 6 digits.
func ValidateOTP(code string) error {
	if len(code) != OTPLength {
		return fmt.Errorf("verification code must be %d digits", OTPLength)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("verification code must contain only digits")
		}
	}
	return nil
}

// ValidatePassword enforces the password length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

// ValidateLanguageHint validates a transcription language hint: "auto" or a
// short BCP-47 style tag like "en", "hi" or "en-US".
func ValidateLanguageHint(lang string) error {
	if lang == "" || lang == "auto" {
		return nil
	}
	if len(lang) > 16 {
		return fmt.Errorf("invalid language hint: %s", lang)
	}
	for _, r := range lang {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isAlpha && r != '-' {
			return fmt.Errorf("invalid language hint: %s", lang)
		}
	}
	return nil
}
