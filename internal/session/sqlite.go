package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

// SQLiteStore implements [Store] backed by the sessions table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new [SQLiteStore] with the given database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves a session by ID, excluding expired sessions.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT data FROM sessions
		WHERE id = ? AND expires_at > ?
	`

	var data string
	err := s.db.QueryRowContext(ctx, query, id, time.Now().UTC()).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	return &sess, nil
}

// Set creates or overwrites a session record.
func (s *SQLiteStore) Set(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	query := `
		INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query, sess.ID, string(data), sess.ExpiresAt, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Touch extends the session's expiry to now+ttl.
//
// The expiry inside the JSON payload is refreshed alongside the column
// so a subsequent Get returns a consistent record.
func (s *SQLiteStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	sess.ExpiresAt = time.Now().UTC().Add(ttl)
	return s.Set(ctx, sess)
}

// Destroy removes a session by ID.
func (s *SQLiteStore) Destroy(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// All enumerates the unexpired sessions.
func (s *SQLiteStore) All(ctx context.Context) ([]*models.Session, error) {
	query := `
		SELECT data FROM sessions
		WHERE expires_at > ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		var sess models.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}

		sessions = append(sessions, &sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// Clear removes every session.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
