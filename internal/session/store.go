package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is the sliding session lifetime
	DefaultTTL = 24 * time.Hour
	// keyPrefix namespaces session keys in Redis
	keyPrefix = "session:"
)

var (
	// ErrNotFound is returned when no session exists for the given id
	ErrNotFound = errors.New("session not found")
	// ErrInvalid is returned when a stored session payload is not a plain
	// user id. Callers must treat this as unauthenticated, never as a
	// server error; the store deletes the corrupt entry itself.
	ErrInvalid = errors.New("invalid session payload")
)

// Store is a Redis-backed server-side session store. The payload is only
// the user's internal id, never a serialized profile.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore connects to Redis and returns a session store
func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewStoreWithClient(client, ttl), nil
}

// NewStoreWithClient returns a session store over an existing Redis client
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Client exposes the underlying Redis client so other components (the rate
// limiter store) can share the connection.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// TTL returns the configured sliding session lifetime
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session for the user and returns its opaque id
func (s *Store) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, keyPrefix+id, userID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return id, nil
}

// Get resolves a session id back to a user id. A malformed stored payload
// self-heals: the entry is deleted and ErrInvalid is returned.
func (s *Store) Get(ctx context.Context, id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, ErrNotFound
	}
	val, err := s.client.Get(ctx, keyPrefix+id).Result()
	if err == redis.Nil {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read session: %w", err)
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		// Corrupt payload: drop the session rather than erroring forever.
		_ = s.client.Del(ctx, keyPrefix+id).Err()
		return uuid.Nil, ErrInvalid
	}
	return userID, nil
}

// Touch extends the session's expiry, implementing the 24-hour sliding window
func (s *Store) Touch(ctx context.Context, id string) error {
	if err := s.client.Expire(ctx, keyPrefix+id, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting a nonexistent session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
