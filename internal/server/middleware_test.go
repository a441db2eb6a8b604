package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/session"
	"github.com/desertthunder/spindle/internal/shared"
)

func newTestSessionStore(t *testing.T) session.Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return session.NewSQLiteStore(db)
}

func TestSessionsMiddleware(t *testing.T) {
	store := newTestSessionStore(t)
	codec := NewCookieCodec("test-secret")
	logger := shared.NewLogger(nil)

	var seen *models.Session
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Sessions(store, codec, time.Hour, logger)(inner)

	t.Run("Creates Session For New Visitor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

		if seen == nil {
			t.Fatal("expected a session in the request context")
		}

		cookies := rec.Result().Cookies()
		var found bool
		for _, c := range cookies {
			if c.Name == sessionCookieName {
				found = true
				if !c.HttpOnly {
					t.Error("session cookie should be httpOnly")
				}
			}
		}
		if !found {
			t.Error("expected a session cookie on the response")
		}
	})

	t.Run("Reuses Session Across Requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		first := seen.ID

		req := httptest.NewRequest("GET", "/health", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen.ID != first {
			t.Errorf("expected session %s to be reused, got %s", first, seen.ID)
		}
	})

	t.Run("Tampered Cookie Gets Fresh Session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		first := seen.ID

		req := httptest.NewRequest("GET", "/health", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "forged.signature"})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen.ID == first {
			t.Error("expected a fresh session for a forged cookie")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Matching", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("GET", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for GET, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for POST, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		router := NewBasicRouter()

		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router.Use(mw("first"), mw("second"))
		router.Handle("GET", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ping", nil))

		want := []string{"first", "second", "handler"}
		if len(order) != len(want) {
			t.Fatalf("expected %v, got %v", want, order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, order)
			}
		}
	})
}
