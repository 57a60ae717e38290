package middleware

import (
	"net/http"
	"strconv"

	"event-template-platform/internal/models"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session values written at sign-in and read on every request.
const (
	SessionUserID = "user_id"
	SessionRole   = "role"
	SessionEmail  = "email"
)

// AuthMiddleware attaches the signed-in user to the request context.
type AuthMiddleware struct {
	store  sessions.Store
	logger *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(store sessions.Store, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		store:  store,
		logger: logger.Named("auth"),
	}
}

// LoadUser reads the session cookie and stores the user in the context.
// Requests without a valid session continue anonymously.
func (m *AuthMiddleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r, SessionName)
		if err != nil {
			m.logger.Debug("ignoring invalid session", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		user := userFromSession(session)
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(models.WithUser(r.Context(), user)))
	})
}

func userFromSession(session *sessions.Session) *models.User {
	var userID int
	switch v := session.Values[SessionUserID].(type) {
	case int:
		userID = v
	case int64:
		userID = int(v)
	case float64:
		userID = int(v)
	case string:
		userID, _ = strconv.Atoi(v)
	}
	if userID == 0 {
		return nil
	}

	role, _ := session.Values[SessionRole].(string)
	if models.ValidateRole(models.UserRole(role)) != nil {
		return nil
	}
	email, _ := session.Values[SessionEmail].(string)

	return &models.User{ID: userID, Email: email, Role: models.UserRole(role)}
}

// RequireUser rejects requests that carry no user with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if models.UserFromContext(r.Context()) == nil {
			WriteError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects users whose role is not role. Admins always pass.
func RequireRole(role models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := models.UserFromContext(r.Context())
			if user == nil {
				WriteError(w, http.StatusUnauthorized, "Not logged in")
				return
			}
			if user.Role != role && !user.IsAdmin() {
				WriteError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
