package middleware

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/request"
	"github.com/voxscribe/voxscribe-api/internal/session"
)

// Auth creates authentication middleware that resolves the session cookie
// to a user. A missing cookie is a plain 401; a cookie pointing at a dead or
// corrupt session additionally clears the cookie and destroys the session so
// the client stops presenting it.
func Auth(store *session.Store, users database.UserRepositoryInterface, policy session.CookiePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := session.FromRequest(r)
			if sid == "" {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			ctx := r.Context()
			userID, err := store.Get(ctx, sid)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalid) {
					policy.Clear(w)
					respondError(w, http.StatusUnauthorized, "Session expired")
					return
				}
				log.Printf("Session lookup failed: %v", err)
				respondError(w, http.StatusInternalServerError, "Session store error")
				return
			}

			user, err := users.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					// Session survived the account; tear it down.
					if delErr := store.Delete(ctx, sid); delErr != nil {
						log.Printf("Failed to delete dangling session: %v", delErr)
					}
					policy.Clear(w)
					respondError(w, http.StatusUnauthorized, "Session expired")
					return
				}
				log.Printf("Database error while fetching user: %v", err)
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}

			// Sliding expiration, best-effort.
			if err := store.Touch(ctx, sid); err != nil {
				log.Printf("Failed to extend session: %v", err)
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
