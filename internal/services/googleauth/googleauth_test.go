package googleauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	client := NewClient("test-client-id", "test-secret", "http://localhost:8080/auth/google/callback")
	if client == nil {
		t.Fatal("Client is nil")
	}
	if client.config.ClientID != "test-client-id" {
		t.Errorf("Expected ClientID 'test-client-id', got '%s'", client.config.ClientID)
	}
	if client.config.ClientSecret != "test-secret" {
		t.Errorf("Expected ClientSecret 'test-secret', got '%s'", client.config.ClientSecret)
	}
	if client.config.RedirectURL != "http://localhost:8080/auth/google/callback" {
		t.Errorf("Unexpected RedirectURL '%s'", client.config.RedirectURL)
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	client := NewClient("test-client-id", "secret", "http://localhost:8080/auth/google/callback")
	url := client.AuthCodeURL("test-state-123")

	if !strings.Contains(url, "accounts.google.com") {
		t.Errorf("AuthCodeURL should point at Google, got %s", url)
	}
	if !strings.Contains(url, "state=test-state-123") {
		t.Errorf("AuthCodeURL should carry the state, got %s", url)
	}
	if !strings.Contains(url, "scope=openid+email+profile") {
		t.Errorf("AuthCodeURL should request openid email profile, got %s", url)
	}
}

func TestNewState(t *testing.T) {
	t.Parallel()

	a, err := NewState()
	if err != nil {
		t.Fatalf("NewState() returned error: %v", err)
	}
	b, err := NewState()
	if err != nil {
		t.Fatalf("NewState() returned error: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("state length = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Error("two states are identical, want random nonces")
	}
}

// signingSetup holds a test RSA key and a JWKS server publishing its public half.
type signingSetup struct {
	key    jwk.Key
	server *httptest.Server
}

func newSigningSetup(t *testing.T) *signingSetup {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}

	key, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("wrapping private key: %v", err)
	}
	if err := key.Set(jwk.KeyIDKey, "test-key-1"); err != nil {
		t.Fatalf("setting kid: %v", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatalf("setting alg: %v", err)
	}

	pub, err := key.PublicKey()
	if err != nil {
		t.Fatalf("deriving public key: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatalf("building key set: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(set); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	return &signingSetup{key: key, server: server}
}

func (s *signingSetup) signToken(t *testing.T, build func(b *jwt.Builder)) string {
	t.Helper()

	now := time.Now()
	builder := jwt.NewBuilder().
		Issuer("https://accounts.google.com").
		Subject("google-sub-123").
		Audience([]string{"test-client-id"}).
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Claim("email", "user@example.com").
		Claim("email_verified", true).
		Claim("name", "Test User").
		Claim("picture", "https://example.com/avatar.png")
	if build != nil {
		build(builder)
	}

	token, err := builder.Build()
	if err != nil {
		t.Fatalf("building token: %v", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, s.key))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return string(signed)
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	setup := newSigningSetup(t)
	verifier := NewVerifier(NewJWKSManager(), "test-client-id").WithJWKSURL(setup.server.URL)

	claims, err := verifier.Verify(context.Background(), setup.signToken(t, nil))
	if err != nil {
		t.Fatalf("Verify() returned error: %v", err)
	}

	if claims.Sub != "google-sub-123" {
		t.Errorf("Sub = %q, want google-sub-123", claims.Sub)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", claims.Email)
	}
	if !claims.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
	if claims.Name != "Test User" {
		t.Errorf("Name = %q, want Test User", claims.Name)
	}
	if claims.Picture != "https://example.com/avatar.png" {
		t.Errorf("Picture = %q", claims.Picture)
	}
	if claims.Aud != "test-client-id" {
		t.Errorf("Aud = %q, want test-client-id", claims.Aud)
	}
}

func TestVerifier_RejectsWrongAudience(t *testing.T) {
	t.Parallel()

	setup := newSigningSetup(t)
	verifier := NewVerifier(NewJWKSManager(), "test-client-id").WithJWKSURL(setup.server.URL)

	token := setup.signToken(t, func(b *jwt.Builder) {
		b.Audience([]string{"someone-else"})
	})
	if _, err := verifier.Verify(context.Background(), token); err == nil {
		t.Fatal("Verify() accepted token for a different audience")
	}
}

func TestVerifier_RejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	setup := newSigningSetup(t)
	verifier := NewVerifier(NewJWKSManager(), "test-client-id").WithJWKSURL(setup.server.URL)

	token := setup.signToken(t, func(b *jwt.Builder) {
		b.Issuer("https://evil.example.com")
	})
	if _, err := verifier.Verify(context.Background(), token); err == nil {
		t.Fatal("Verify() accepted token from an unexpected issuer")
	}
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	t.Parallel()

	setup := newSigningSetup(t)
	verifier := NewVerifier(NewJWKSManager(), "test-client-id").WithJWKSURL(setup.server.URL)

	token := setup.signToken(t, func(b *jwt.Builder) {
		b.Expiration(time.Now().Add(-time.Hour))
	})
	if _, err := verifier.Verify(context.Background(), token); err == nil {
		t.Fatal("Verify() accepted an expired token")
	}
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	t.Parallel()

	setup := newSigningSetup(t)
	verifier := NewVerifier(NewJWKSManager(), "test-client-id").WithJWKSURL(setup.server.URL)

	if _, err := verifier.Verify(context.Background(), "not-a-jwt"); err == nil {
		t.Fatal("Verify() accepted a malformed token")
	}
}
