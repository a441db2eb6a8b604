// package cache persists normalized playlist sets so repeated reads
// skip the upstream API entirely.
//
// Entries are whole sets keyed by (entity type, owner key); freshness
// is judged per read against a caller-chosen window, so the same row
// can be too stale for one caller and acceptable for another.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

// EntityType names a cached playlist set.
type EntityType string

const (
	// Featured is the app-scoped featured playlist set (no owner).
	Featured EntityType = "featured"
	// User is the set of playlists a user follows or owns.
	User EntityType = "user"
	// Owned is the subset of playlists a user owns.
	Owned EntityType = "owned"
)

// DefaultMaxAge is the freshness window applied when callers have no
// reason to choose their own.
const DefaultMaxAge = time.Hour

// Store reads and writes playlist sets in the playlist_cache table.
type Store struct {
	db     *sql.DB
	logger *log.Logger

	now func() time.Time
}

// NewStore creates a [Store] over the given database connection.
func NewStore(db *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the cached playlist set for the key when one exists and
// its age is within maxAge. The second return reports a hit; a stale
// or absent entry is a miss, never an error.
func (s *Store) Get(ctx context.Context, entity EntityType, owner string, maxAge time.Duration) ([]models.Playlist, bool, error) {
	query := `
		SELECT payload, updated_at FROM playlist_cache
		WHERE entity_type = ? AND owner_key = ?
	`

	var payload string
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query, string(entity), owner).Scan(&payload, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query playlist cache: %w", err)
	}

	age := s.now().UTC().Sub(updatedAt)
	if age > maxAge {
		s.logger.Debug("cache entry stale", "entity", entity, "owner", owner, "age", age)
		return nil, false, nil
	}

	var playlists []models.Playlist
	if err := json.Unmarshal([]byte(payload), &playlists); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached playlists: %w", err)
	}

	return playlists, true, nil
}

// Put stores the playlist set for the key, replacing any prior entry
// atomically.
func (s *Store) Put(ctx context.Context, entity EntityType, owner string, playlists []models.Playlist) error {
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	payload, err := json.Marshal(playlists)
	if err != nil {
		return fmt.Errorf("failed to encode playlists: %w", err)
	}

	query := `
		INSERT INTO playlist_cache (entity_type, owner_key, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_type, owner_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query, string(entity), owner, string(payload), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store playlist cache entry: %w", err)
	}

	s.logger.Debug("cache entry written", "entity", entity, "owner", owner, "count", len(playlists))
	return nil
}

// Invalidate removes the entry for the key. Removing an absent entry
// is not an error.
func (s *Store) Invalidate(ctx context.Context, entity EntityType, owner string) error {
	query := "DELETE FROM playlist_cache WHERE entity_type = ? AND owner_key = ?"
	if _, err := s.db.ExecContext(ctx, query, string(entity), owner); err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// Sweep deletes entries older than the given ceiling and returns how
// many were removed.
func (s *Store) Sweep(ctx context.Context, ceiling time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-ceiling)

	res, err := s.db.ExecContext(ctx, "DELETE FROM playlist_cache WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep playlist cache: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept entries: %w", err)
	}

	if removed > 0 {
		s.logger.Info("swept stale cache entries", "removed", removed, "ceiling", ceiling)
	}

	return removed, nil
}
