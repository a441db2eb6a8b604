package tokens

import (
	"context"
	"fmt"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/oauth2"
)

// BeginHandshake creates the PKCE verifier and anti-CSRF state for a
// login attempt and stores them on the session.
func (s *Store) BeginHandshake(ctx context.Context, sess *models.Session) (*models.Handshake, error) {
	h := &models.Handshake{
		Verifier:  oauth2.GenerateVerifier(),
		State:     shared.GenerateID(),
		CreatedAt: s.now(),
	}

	sess.Handshake = h
	if err := s.sessions.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist handshake: %w", err)
	}

	return h, nil
}

// AuthCodeURL returns the provider authorization URL carrying the
// handshake's state and S256 PKCE challenge.
func (s *Store) AuthCodeURL(h *models.Handshake) string {
	return s.conf.AuthCodeURL(h.State, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(h.Verifier))
}

// ConsumeHandshake removes and returns the session's handshake state.
//
// A handshake is single-use: once consumed, a second callback carrying
// the same state fails with [shared.ErrNoHandshake].
func (s *Store) ConsumeHandshake(ctx context.Context, sess *models.Session) (*models.Handshake, error) {
	h := sess.Handshake
	if h == nil {
		return nil, shared.ErrNoHandshake
	}

	sess.Handshake = nil
	if err := s.sessions.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to consume handshake: %w", err)
	}

	return h, nil
}

// Exchange trades the authorization code for a token bundle using the
// handshake's verifier, then saves the bundle on the session.
func (s *Store) Exchange(ctx context.Context, sess *models.Session, code string, h *models.Handshake) error {
	tok, err := s.conf.Exchange(ctx, code, oauth2.VerifierOption(h.Verifier))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	return s.Save(ctx, sess, tok)
}
