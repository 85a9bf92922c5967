package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/extreg/extreg/internal/common/httpx"
	"github.com/extreg/extreg/internal/common/uuid"
)

// SessionCookieName is the cookie used as an alternative to the
// Authorization header.
const SessionCookieName = "extreg_session"

type ctxUserKeyType string

const ctxUserKey ctxUserKeyType = "ExtregSessionUser"

// UserFromContext returns the authenticated user name, if any.
func UserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(ctxUserKey).(string); ok {
		return user
	}
	return ""
}

// SessionIDFromRequest extracts the session ID from the Authorization bearer
// token or the session cookie. Returns uuid.Nil when neither carries one.
func SessionIDFromRequest(r *http.Request) uuid.UUID {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if id, err := uuid.Parse(strings.TrimPrefix(auth, "Bearer ")); err == nil {
			return id
		}
		return uuid.Nil
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id
		}
	}
	return uuid.Nil
}

// RequireSession rejects requests without a live session and stores the
// session's user in the request context.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := SessionIDFromRequest(r)
		if sessionID == uuid.Nil {
			httpx.ErrUnAuthorized("missing session").Send(w)
			return
		}

		user, err := m.Authenticate(r.Context(), sessionID)
		if err != nil {
			httpx.SendError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
