package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/session"
	"github.com/desertthunder/spindle/internal/shared"
)

type contextKey string

const sessionContextKey contextKey = "spindle.session"

// SessionFromContext returns the request's session, nil when the
// session middleware did not run.
func SessionFromContext(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(sessionContextKey).(*models.Session)
	return sess
}

// Logging logs each request with its method, path, status, and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Sessions resolves or creates the visitor session for each request
// and extends its expiry on use.
//
// A request with no cookie, a tampered cookie, or an expired session
// gets a fresh anonymous session; handlers downstream always see a
// non-nil session in the context.
func Sessions(store session.Store, codec *CookieCodec, ttl time.Duration, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sess *models.Session

			if id, err := codec.ReadSessionCookie(r); err == nil {
				sess, err = store.Get(ctx, id)
				if err != nil && !errors.Is(err, shared.ErrSessionNotFound) {
					logger.Error("failed to load session", "error", err)
					http.Error(w, "session backend unavailable", http.StatusInternalServerError)
					return
				}
			}

			if sess == nil {
				sess = models.NewSession(shared.GenerateID(), ttl)
				if err := store.Set(ctx, sess); err != nil {
					logger.Error("failed to create session", "error", err)
					http.Error(w, "session backend unavailable", http.StatusInternalServerError)
					return
				}
				logger.Debug("session created", "session", sess.ID)
			} else if err := store.Touch(ctx, sess.ID, ttl); err != nil {
				logger.Warn("failed to touch session", "session", sess.ID, "error", err)
			}

			codec.SetSessionCookie(w, sess.ID, ttl)

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionContextKey, sess)))
		})
	}
}
