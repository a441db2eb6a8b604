package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "spindle.db" {
			t.Errorf("expected database path spindle.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.RedirectURI != "http://localhost:8080/callback" {
			t.Errorf("expected default redirect URI, got %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Cache.Freshness() != time.Hour {
			t.Errorf("expected default freshness of 1h, got %v", config.Cache.Freshness())
		}

		if config.Cache.StalenessCeiling() != 24*time.Hour {
			t.Errorf("expected staleness ceiling of 24h, got %v", config.Cache.StalenessCeiling())
		}

		if config.Server.SessionTTL() != 24*time.Hour {
			t.Errorf("expected session TTL of 24h, got %v", config.Server.SessionTTL())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[redis]
addr = "localhost:6379"
db = 2

[server]
host = "0.0.0.0"
port = 9090
cookie_secret = "s3cret"
session_ttl_minutes = 30

[cache]
freshness_minutes = 15

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:9090/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Redis.Addr != "localhost:6379" {
			t.Errorf("expected redis addr localhost:6379, got %s", config.Redis.Addr)
		}

		if config.Server.SessionTTL() != 30*time.Minute {
			t.Errorf("expected session TTL of 30m, got %v", config.Server.SessionTTL())
		}

		if config.Cache.Freshness() != 15*time.Minute {
			t.Errorf("expected freshness of 15m, got %v", config.Cache.Freshness())
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})
}
