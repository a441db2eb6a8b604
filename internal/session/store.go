// package session provides pluggable persistence backends for session records.
//
// Sessions are stored as opaque JSON blobs keyed by ID. The backing
// medium (SQLite or Redis) serializes individual reads and writes;
// concurrent writers to the same session follow last-writer-wins.
package session

import (
	"context"
	"time"

	"github.com/desertthunder/spindle/internal/models"
)

// Store is the persistence contract for session records.
//
// Implementations survive process restarts. Backend I/O failures are
// surfaced as-is and are never retried here.
type Store interface {
	// Get retrieves a session by ID. Expired or missing sessions
	// return an error wrapping [shared.ErrSessionNotFound].
	Get(ctx context.Context, id string) (*models.Session, error)

	// Set creates or overwrites a session record, bumping UpdatedAt.
	Set(ctx context.Context, sess *models.Session) error

	// Touch extends the session's expiry to now+ttl without
	// rewriting its payload fields.
	Touch(ctx context.Context, id string, ttl time.Duration) error

	// Destroy removes a session. Destroying an unknown ID is not an error.
	Destroy(ctx context.Context, id string) error

	// All enumerates the unexpired sessions.
	All(ctx context.Context) ([]*models.Session, error)

	// Clear removes every session.
	Clear(ctx context.Context) error
}
