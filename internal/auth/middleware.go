package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pu-events/portal/internal/model"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "portal_session"

type contextKey struct{}

// ContextWithSession returns a derived context carrying the session.
func ContextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// SessionFromContext extracts the session attached by RequireSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(contextKey{}).(Session)
	return session, ok
}

// RequireSession rejects requests without a valid session token and
// threads the session through the request context. Tokens are read from
// the session cookie or a Bearer Authorization header.
func (s *Sessions) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "authentication required",
				model.NewNotification(model.NotifyLogin, "Please login to register for events."))
			return
		}

		session, err := s.Verify(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "session is invalid or expired",
				model.NewNotification(model.NotifyLogin, "Please login again."))
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
	})
}

// RequireAdmin rejects sessions without the admin claim. It must run
// after RequireSession.
func (s *Sessions) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok || !session.Admin {
			writeAuthError(w, http.StatusForbidden, "admin access required",
				model.NewNotification(model.NotifyError, "Only university staff accounts may access the admin panel."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string, n *model.Notification) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg, Notification: n})
}
