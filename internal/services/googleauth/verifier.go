package googleauth

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/voxscribe/voxscribe-api/internal/models"
)

// Google signs ID tokens under either issuer spelling.
var googleIssuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

// Verifier verifies Google ID tokens
type Verifier struct {
	jwksManager *JWKSManager
	jwksURL     string
	clientID    string
}

// NewVerifier creates a new ID token verifier for the given OAuth client ID
func NewVerifier(jwksManager *JWKSManager, clientID string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		jwksURL:     GoogleJWKSURL,
		clientID:    clientID,
	}
}

// WithJWKSURL overrides the JWKS endpoint. Used in tests.
func (v *Verifier) WithJWKSURL(url string) *Verifier {
	v.jwksURL = url
	return v
}

// Verify verifies a Google ID token's signature, issuer, audience and
// expiry, and extracts its claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.GoogleClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	// Parse and verify token
	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	// Verify issuer
	iss, ok := token.Get("iss")
	if !ok {
		return nil, fmt.Errorf("token missing issuer claim")
	}
	issStr, ok := iss.(string)
	if !ok || !googleIssuers[issStr] {
		return nil, fmt.Errorf("token issuer mismatch: got %v", iss)
	}

	// Verify audience is our client ID
	auds := token.Audience()
	audOK := false
	for _, aud := range auds {
		if aud == v.clientID {
			audOK = true
			break
		}
	}
	if !audOK {
		return nil, fmt.Errorf("token audience mismatch")
	}

	// Extract claims
	claims := &models.GoogleClaims{
		Iss: issStr,
	}
	if len(auds) > 0 {
		claims.Aud = auds[0]
	}

	if sub, ok := token.Get("sub"); ok {
		if subStr, ok := sub.(string); ok {
			claims.Sub = subStr
		}
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}

	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}

	if verified, ok := token.Get("email_verified"); ok {
		switch val := verified.(type) {
		case bool:
			claims.EmailVerified = val
		case string:
			claims.EmailVerified = val == "true"
		}
	}

	if name, ok := token.Get("name"); ok {
		if nameStr, ok := name.(string); ok {
			claims.Name = nameStr
		}
	}

	if picture, ok := token.Get("picture"); ok {
		if picStr, ok := picture.(string); ok {
			claims.Picture = picStr
		}
	}

	if !token.Expiration().IsZero() {
		claims.Exp = token.Expiration().Unix()
	}
	if !token.IssuedAt().IsZero() {
		claims.Iat = token.IssuedAt().Unix()
	}

	return claims, nil
}
