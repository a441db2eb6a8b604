package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/session"
	"github.com/desertthunder/spindle/internal/spotify"
	"github.com/desertthunder/spindle/internal/tokens"
)

// Profile resolves the authenticated account for a freshly logged-in
// session.
type Profile interface {
	Me(ctx context.Context, sess *models.Session) (*spotify.User, error)
}

// AuthHandler implements the login, callback, and logout endpoints of
// the authorization code flow.
//
// Login state rides on two carriers: the session record and a signed
// fallback cookie. The callback prefers the session's copy and never
// merges fields across carriers.
type AuthHandler struct {
	tokens   *tokens.Store
	sessions session.Store
	codec    *CookieCodec
	profile  Profile
	logger   *log.Logger

	now func() time.Time
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(ts *tokens.Store, sessions session.Store, codec *CookieCodec, profile Profile, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:   ts,
		sessions: sessions,
		codec:    codec,
		profile:  profile,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the patterns this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"GET /login", "GET /callback", "POST /logout"}
}

// ServeHTTP dispatches to the flow step matching the request path.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	case "/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login creates the handshake, stores it on both carriers, and
// redirects to the provider's authorization page.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	handshake, err := h.tokens.BeginHandshake(r.Context(), sess)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.codec.SetHandshakeCookie(w, handshake); err != nil {
		h.logger.Warn("failed to set fallback handshake cookie", "session", sess.ID, "error", err)
	}

	h.logger.Info("login started", "session", sess.ID)
	http.Redirect(w, r, h.tokens.AuthCodeURL(handshake), http.StatusFound)
}

// callback validates the returned state, exchanges the code, and
// records the account on the session.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	ctx := r.Context()

	// The fallback cookie is single-use either way.
	h.codec.ClearHandshakeCookie(w)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "session", sess.ID, "reason", errParam)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "authorization denied: " + errParam})
		return
	}

	handshake, err := h.resolveHandshake(ctx, r, sess)
	if err != nil {
		h.logger.Warn("callback without handshake", "session", sess.ID)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no login in progress"})
		return
	}

	state := r.URL.Query().Get("state")
	if subtle.ConstantTimeCompare([]byte(state), []byte(handshake.State)) != 1 {
		h.logger.Warn("state mismatch", "session", sess.ID)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "authorization state mismatch"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing authorization code"})
		return
	}

	if err := h.tokens.Exchange(ctx, sess, code, handshake); err != nil {
		h.logger.Error("token exchange failed", "session", sess.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "token exchange failed"})
		return
	}

	if h.profile != nil {
		user, err := h.profile.Me(ctx, sess)
		if err != nil {
			h.logger.Warn("failed to resolve account", "session", sess.ID, "error", err)
		} else {
			sess.Account = user.ID
			if err := h.sessions.Set(ctx, sess); err != nil {
				h.logger.Error("failed to persist account", "session", sess.ID, "error", err)
			}
		}
	}

	h.logger.Info("login completed", "session", sess.ID, "account", sess.Account)
	writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated", "account": sess.Account})
}

// resolveHandshake picks one carrier for the login state: the session
// record when it holds a handshake, the signed cookie otherwise.
// Carriers are never merged.
//
// The session carrier is consumed server-side; the cookie carrier is
// only cleared via Set-Cookie, so a client that retains the cookie can
// re-resolve the handshake. Single use still holds because the
// provider rejects a replayed authorization code at exchange.
func (h *AuthHandler) resolveHandshake(ctx context.Context, r *http.Request, sess *models.Session) (*models.Handshake, error) {
	if sess.Handshake != nil {
		return h.tokens.ConsumeHandshake(ctx, sess)
	}
	return h.codec.ReadHandshakeCookie(r, h.now())
}

// logout clears the token bundle, destroys the session, and expires
// the cookies.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	ctx := r.Context()

	if err := h.tokens.Invalidate(ctx, sess); err != nil {
		h.logger.Warn("failed to invalidate bundle", "session", sess.ID, "error", err)
	}

	if err := h.sessions.Destroy(ctx, sess.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.codec.ClearSessionCookie(w)
	h.codec.ClearHandshakeCookie(w)

	h.logger.Info("logged out", "session", sess.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
