package middleware

import (
	"log"
	"net/http"

	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/request"
)

// ActivityTracking records the last API interaction per authenticated user.
// Failures never affect the request.
func ActivityTracking(users database.UserRepositoryInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := request.UserFromContext(r); user != nil {
				if err := users.TouchLastSeen(r.Context(), user.ID); err != nil {
					log.Printf("Failed to update user activity: %v", err)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
