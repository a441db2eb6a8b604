package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

func TestCookieCodec(t *testing.T) {
	codec := NewCookieCodec("test-secret")

	t.Run("Round Trip", func(t *testing.T) {
		encoded := codec.Encode("sess-123")

		decoded, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded != "sess-123" {
			t.Errorf("expected sess-123, got %s", decoded)
		}
	})

	t.Run("Rejects Tampered Payload", func(t *testing.T) {
		encoded := codec.Encode("sess-123")
		parts := strings.SplitN(encoded, ".", 2)
		tampered := "eHh4" + "." + parts[1]

		if _, err := codec.Decode(tampered); err == nil {
			t.Error("expected tampered cookie to be rejected")
		}
	})

	t.Run("Rejects Foreign Signature", func(t *testing.T) {
		other := NewCookieCodec("different-secret")

		if _, err := codec.Decode(other.Encode("sess-123")); err == nil {
			t.Error("expected cookie signed with another key to be rejected")
		}
	})

	t.Run("Rejects Malformed Value", func(t *testing.T) {
		if _, err := codec.Decode("no-separator"); err == nil {
			t.Error("expected malformed cookie to be rejected")
		}
	})
}

func TestHandshakeCookie(t *testing.T) {
	codec := NewCookieCodec("test-secret")

	newRequest := func(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
		t.Helper()
		req := httptest.NewRequest("GET", "/callback", nil)
		for _, cookie := range rec.Result().Cookies() {
			req.AddCookie(cookie)
		}
		return req
	}

	t.Run("Round Trip", func(t *testing.T) {
		now := time.Now().UTC()
		h := &models.Handshake{Verifier: "verifier-1", State: "state-1", CreatedAt: now}

		rec := httptest.NewRecorder()
		if err := codec.SetHandshakeCookie(rec, h); err != nil {
			t.Fatalf("failed to set cookie: %v", err)
		}

		got, err := codec.ReadHandshakeCookie(newRequest(t, rec), now.Add(time.Minute))
		if err != nil {
			t.Fatalf("failed to read cookie: %v", err)
		}

		if got.Verifier != "verifier-1" || got.State != "state-1" {
			t.Errorf("unexpected handshake: %+v", got)
		}
	})

	t.Run("Expires After TTL", func(t *testing.T) {
		now := time.Now().UTC()
		h := &models.Handshake{Verifier: "verifier-1", State: "state-1", CreatedAt: now}

		rec := httptest.NewRecorder()
		if err := codec.SetHandshakeCookie(rec, h); err != nil {
			t.Fatalf("failed to set cookie: %v", err)
		}

		_, err := codec.ReadHandshakeCookie(newRequest(t, rec), now.Add(11*time.Minute))
		if !errors.Is(err, shared.ErrNoHandshake) {
			t.Errorf("expected ErrNoHandshake past TTL, got %v", err)
		}
	})

	t.Run("Absent Cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/callback", nil)

		_, err := codec.ReadHandshakeCookie(req, time.Now())
		if !errors.Is(err, shared.ErrNoHandshake) {
			t.Errorf("expected ErrNoHandshake, got %v", err)
		}
	})
}
