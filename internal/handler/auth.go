package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/pu-events/portal/internal/auth"
	"github.com/pu-events/portal/internal/model"
)

// stateCookie carries the CSRF state across the provider round-trip.
const stateCookie = "oauth_state"

// AuthHandler exposes the sign-in flow against the external identity
// provider and the session endpoints.
type AuthHandler struct {
	provider *auth.Provider
	sessions *auth.Sessions
	secure   bool
}

// NewAuthHandler constructs an AuthHandler. secure controls the Secure
// flag on issued cookies.
func NewAuthHandler(provider *auth.Provider, sessions *auth.Sessions, secure bool) *AuthHandler {
	return &AuthHandler{provider: provider, sessions: sessions, secure: secure}
}

// Login handles GET /auth/login
// Starts the provider flow by redirecting to its consent screen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	redirect, err := h.provider.AuthCodeURL(state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, redirect, http.StatusFound)
}

// sessionResponse is the payload returned after a completed sign-in.
type sessionResponse struct {
	Token    string        `json:"token"`
	Identity auth.Identity `json:"identity"`
	Admin    bool          `json:"admin"`
}

// Callback handles GET /auth/callback
// Completes the provider flow: validates state, exchanges the code,
// mints a session, and sets the session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		if errParam == "access_denied" {
			writeErrorNotify(w, http.StatusUnauthorized, "Login was cancelled", model.NotifyError)
			return
		}
		writeErrorNotify(w, http.StatusUnauthorized, "Login failed. Please try again.", model.NotifyError)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if code == "" || state == "" || err != nil || cookie.Value != state {
		writeError(w, http.StatusBadRequest, "invalid sign-in state")
		return
	}
	clearCookie(w, stateCookie, "/auth", h.secure)

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		if errors.Is(err, auth.ErrExchangeFailed) {
			writeErrorNotify(w, http.StatusBadGateway, "Login failed. Please try again.", model.NotifyError)
			return
		}
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	token, err := h.sessions.Mint(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:    token,
		Identity: identity,
		Admin:    h.sessions.IsAdminEmail(identity.Email),
	})
}

// Logout handles POST /auth/logout
// Tears the session down by clearing the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, auth.SessionCookie, "/", h.secure)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me handles GET /auth/me
// Returns the caller's session identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": session.Identity,
		"admin":    session.Admin,
	})
}

func clearCookie(w http.ResponseWriter, name, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
