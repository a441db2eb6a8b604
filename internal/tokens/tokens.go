// package tokens manages the OAuth token lifecycle for sessions.
//
// A session owns at most one token bundle. Save applies the early
// refresh margin so a stored expiry is always pessimistic; IsFresh adds
// a second, smaller safety window on top at check time.
package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/session"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/oauth2"
)

const (
	// RefreshMargin is subtracted from the upstream-reported token
	// lifetime when a bundle is saved, so a token is never used while
	// it could expire mid-flight.
	RefreshMargin = 60 * time.Second

	// SafetyWindow is the slack applied at freshness checks. Smaller
	// than RefreshMargin, giving two independent layers of headroom.
	SafetyWindow = 30 * time.Second
)

// Store persists and refreshes token bundles through a [session.Store].
type Store struct {
	sessions session.Store
	conf     *oauth2.Config
	logger   *log.Logger
	now      func() time.Time
}

// NewStore creates a token store over the given session backend and
// provider OAuth configuration.
func NewStore(sessions session.Store, conf *oauth2.Config, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{
		sessions: sessions,
		conf:     conf,
		logger:   logger,
		now:      time.Now,
	}
}

// Save overwrites the session's token bundle with the given token,
// applying the early refresh margin to its expiry.
//
// When the upstream omitted a new refresh token, the prior one is kept.
// Logs an audit line recording refresh token presence and seconds until
// expiry, never the token values themselves.
func (s *Store) Save(ctx context.Context, sess *models.Session, tok *oauth2.Token) error {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(time.Hour)
	}

	bundle := &models.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiry.Add(-RefreshMargin),
	}

	if bundle.RefreshToken == "" && sess.Bundle != nil {
		bundle.RefreshToken = sess.Bundle.RefreshToken
	}

	sess.Bundle = bundle

	if err := s.sessions.Set(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist token bundle: %w", err)
	}

	s.logger.Info("token bundle saved",
		"session", sess.ID,
		"has_refresh_token", bundle.RefreshToken != "",
		"expires_in_s", int(bundle.ExpiresAt.Sub(s.now()).Seconds()))

	return nil
}

// IsFresh reports whether the session holds a bundle usable beyond the
// safety window.
func (s *Store) IsFresh(sess *models.Session) bool {
	if sess == nil || sess.Bundle == nil {
		return false
	}
	return s.now().Add(SafetyWindow).Before(sess.Bundle.ExpiresAt)
}

// Refresh exchanges the session's refresh token for a new bundle and
// saves it, returning the new access token.
//
// Fails with [shared.ErrNoRefreshToken] when the bundle has no refresh
// token, and wraps [shared.ErrRefreshFailed] on upstream rejection; in
// the latter case the caller is responsible for invalidating the bundle.
func (s *Store) Refresh(ctx context.Context, sess *models.Session) (string, error) {
	if sess == nil || sess.Bundle == nil || sess.Bundle.RefreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	src := s.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: sess.Bundle.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if err := s.Save(ctx, sess, tok); err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// Invalidate drops the session's token bundle. Used after a refresh
// fails irrecoverably or a refreshed token is still rejected upstream.
func (s *Store) Invalidate(ctx context.Context, sess *models.Session) error {
	if sess == nil || sess.Bundle == nil {
		return nil
	}

	sess.Bundle = nil
	if err := s.sessions.Set(ctx, sess); err != nil {
		return fmt.Errorf("failed to invalidate token bundle: %w", err)
	}

	s.logger.Info("token bundle invalidated", "session", sess.ID)
	return nil
}
