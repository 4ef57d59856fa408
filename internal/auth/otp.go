package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPTTL is how long a verification code stays valid after issue.
const OTPTTL = 10 * time.Minute

// OTPDigits is the length of a verification code.
const OTPDigits = 6

var otpMax = big.NewInt(1000000)

// GenerateOTP returns a zero-padded 6-digit verification code drawn from
// crypto/rand.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
