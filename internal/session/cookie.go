package session

import (
	"net/http"
	"time"
)

// CookieName is the session cookie name
const CookieName = "sid"

// CookiePolicy controls the attributes of the session cookie. Production
// deployments sit behind HTTPS with a cross-site frontend, so the cookie is
// Secure with SameSite=None there; development uses Lax over plain HTTP.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// NewCookiePolicy returns the cookie policy for the deployment environment
func NewCookiePolicy(production bool) CookiePolicy {
	p := CookiePolicy{MaxAge: DefaultTTL, SameSite: http.SameSiteLaxMode}
	if production {
		p.Secure = true
		p.SameSite = http.SameSiteNoneMode
	}
	return p
}

// Write sets the session cookie on the response
func (p CookiePolicy) Write(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(p.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

// Clear expires the session cookie
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

// FromRequest extracts the session id from the request cookie, or ""
func FromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
