package middleware

import (
	"fmt"
	"net/http"
	"time"

	"event-template-platform/internal/models"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie that carries the signed-in user.
const SessionName = "session"

// SessionMaxAge is how long a minted session stays valid.
const SessionMaxAge = 7 * 24 * time.Hour

// NewCookieStore returns the session store shared by the server and the
// tools that mint sessions for it.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionCookie encodes user into a session cookie that store will accept.
// It lets command line clients authenticate without a sign-in round trip.
func SessionCookie(store *sessions.CookieStore, user *models.User) (*http.Cookie, error) {
	if err := models.ValidateRole(user.Role); err != nil {
		return nil, err
	}
	values := map[any]any{
		SessionUserID: user.ID,
		SessionRole:   string(user.Role),
		SessionEmail:  user.Email,
	}
	encoded, err := securecookie.EncodeMulti(SessionName, values, store.Codecs...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return sessions.NewCookie(SessionName, encoded, store.Options), nil
}

// SecureHeaders adds security headers to responses
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only set HSTS for HTTPS
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
