package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/session"
	"github.com/desertthunder/spindle/internal/shared"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
			t.Fatalf("writeJSON failed: %v", err)
		}

		if !strings.Contains(output.String(), `"key":"value"`) {
			t.Errorf("unexpected output: %s", output.String())
		}
		if !strings.HasSuffix(output.String(), "\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("writeJSON pretty", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
			t.Fatalf("writeJSON failed: %v", err)
		}

		if !strings.Contains(output.String(), "  \"key\": \"value\"") {
			t.Errorf("expected indented output, got: %s", output.String())
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("count: %d", 3); err != nil {
			t.Fatalf("writePlain failed: %v", err)
		}

		if output.String() != "count: 3" {
			t.Errorf("unexpected output: %q", output.String())
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for _, cmd := range commands {
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "serve", "playlists", "export", "cache"} {
			if !names[want] {
				t.Errorf("expected command %s to be registered", want)
			}
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("Initializes Database From Config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "spindle.db")

		contents := "[database]\npath = \"" + dbPath + "\"\n"
		if err := os.WriteFile(configPath, []byte(contents), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		cmd := setupCommand(runner)
		if err := cmd.Run(context.Background(), []string{"setup", "--config", configPath}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("expected database file to be created: %v", err)
		}
		if !strings.Contains(output.String(), "setup complete") {
			t.Errorf("expected completion message, got: %s", output.String())
		}
	})
}

func TestBuildStack(t *testing.T) {
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "spindle.db")

	runner := NewRunner(RunnerOpts{Config: config})

	stack, err := runner.buildStack()
	if err != nil {
		t.Fatalf("buildStack failed: %v", err)
	}
	defer stack.close()

	if stack.sessions == nil || stack.tokens == nil || stack.gateway == nil || stack.client == nil || stack.cache == nil {
		t.Error("expected every component to be wired")
	}

	if err := stack.db.Ping(); err != nil {
		t.Errorf("expected a usable database: %v", err)
	}
}

func TestAuthenticatedSession(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *session.SQLiteStore {
		t.Helper()
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		return session.NewSQLiteStore(db)
	}

	t.Run("Picks The Most Recent Login", func(t *testing.T) {
		store := newStore(t)

		anonymous := models.NewSession("anon", time.Hour)
		if err := store.Set(ctx, anonymous); err != nil {
			t.Fatalf("failed to store session: %v", err)
		}

		older := models.NewSession("older", time.Hour)
		older.Bundle = &models.TokenBundle{AccessToken: "A1"}
		if err := store.Set(ctx, older); err != nil {
			t.Fatalf("failed to store session: %v", err)
		}

		time.Sleep(5 * time.Millisecond)

		newer := models.NewSession("newer", time.Hour)
		newer.Account = "user-1"
		newer.Bundle = &models.TokenBundle{AccessToken: "A2"}
		if err := store.Set(ctx, newer); err != nil {
			t.Fatalf("failed to store session: %v", err)
		}

		sess, err := authenticatedSession(ctx, store)
		if err != nil {
			t.Fatalf("expected a session, got %v", err)
		}
		if sess.ID != "newer" {
			t.Errorf("expected the most recent login, got %s", sess.ID)
		}
	})

	t.Run("No Logged-In Session", func(t *testing.T) {
		store := newStore(t)

		if err := store.Set(ctx, models.NewSession("anon", time.Hour)); err != nil {
			t.Fatalf("failed to store session: %v", err)
		}

		if _, err := authenticatedSession(ctx, store); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})
}
