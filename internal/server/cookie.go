package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

const (
	sessionCookieName   = "spindle_session"
	handshakeCookieName = "spindle_handshake"

	// handshakeCookieTTL bounds how long a login attempt carried only
	// by the fallback cookie stays valid.
	handshakeCookieTTL = 10 * time.Minute
)

// CookieCodec signs and verifies cookie values with HMAC-SHA256 so a
// tampered cookie is rejected rather than trusted.
type CookieCodec struct {
	secret []byte
}

// NewCookieCodec creates a codec keyed with the server cookie secret.
func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{secret: []byte(secret)}
}

// Encode returns the signed wire form of a value.
func (c *CookieCodec) Encode(value string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(value))
	return payload + "." + c.sign(payload)
}

// Decode verifies a signed wire value and returns the original.
func (c *CookieCodec) Decode(encoded string) (string, error) {
	payload, signature, found := strings.Cut(encoded, ".")
	if !found {
		return "", fmt.Errorf("%w: malformed cookie value", shared.ErrInvalidInput)
	}

	if !hmac.Equal([]byte(c.sign(payload)), []byte(signature)) {
		return "", fmt.Errorf("%w: cookie signature mismatch", shared.ErrInvalidInput)
	}

	value, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: cookie payload not decodable", shared.ErrInvalidInput)
	}

	return string(value), nil
}

func (c *CookieCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// SetSessionCookie attaches the signed session ID to the response.
func (c *CookieCodec) SetSessionCookie(w http.ResponseWriter, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    c.Encode(id),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadSessionCookie returns the verified session ID from the request.
func (c *CookieCodec) ReadSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", err
	}
	return c.Decode(cookie.Value)
}

// SetHandshakeCookie attaches the fallback login-state cookie. It is
// the secondary carrier for the handshake when the session backend
// cannot hold it through the redirect.
func (c *CookieCodec) SetHandshakeCookie(w http.ResponseWriter, h *models.Handshake) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to encode handshake: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     handshakeCookieName,
		Value:    c.Encode(string(data)),
		Path:     "/",
		MaxAge:   int(handshakeCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// ReadHandshakeCookie returns the verified fallback handshake, or an
// error when it is absent, tampered with, or older than its TTL.
func (c *CookieCodec) ReadHandshakeCookie(r *http.Request, now time.Time) (*models.Handshake, error) {
	cookie, err := r.Cookie(handshakeCookieName)
	if err != nil {
		return nil, shared.ErrNoHandshake
	}

	data, err := c.Decode(cookie.Value)
	if err != nil {
		return nil, err
	}

	var h models.Handshake
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return nil, fmt.Errorf("%w: handshake cookie not decodable", shared.ErrInvalidInput)
	}

	if now.Sub(h.CreatedAt) > handshakeCookieTTL {
		return nil, shared.ErrNoHandshake
	}

	return &h, nil
}

// ClearHandshakeCookie expires the fallback cookie.
func (c *CookieCodec) ClearHandshakeCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     handshakeCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (c *CookieCodec) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
