package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Cache       CacheConfig       `toml:"cache"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the Spotify app credentials used for both the
// authorization code flow and client credentials grants.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains connection settings for the optional Redis
// session backend. When Addr is empty, sessions are stored in SQLite.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	CookieSecret      string `toml:"cookie_secret"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
}

// CacheConfig contains playlist cache tuning.
type CacheConfig struct {
	FreshnessMinutes int `toml:"freshness_minutes"`
}

// SessionTTL returns the configured session lifetime, defaulting to 24 hours.
func (s ServerConfig) SessionTTL() time.Duration {
	if s.SessionTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

// Freshness returns the cache freshness window, defaulting to 1 hour.
func (c CacheConfig) Freshness() time.Duration {
	if c.FreshnessMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.FreshnessMinutes) * time.Minute
}

// StalenessCeiling returns the age past which cached sets are purged
// outright, 24x the freshness window.
func (c CacheConfig) StalenessCeiling() time.Duration {
	return 24 * c.Freshness()
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
