package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:"

// RedisStore implements [Store] backed by Redis. Expiry is delegated to
// Redis key TTLs, so expired sessions vanish without a sweeper.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new [RedisStore] with the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves a session by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+id).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	return &sess, nil
}

// Set creates or overwrites a session record with a TTL derived from
// its expiry.
func (s *RedisStore) Set(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := s.client.Set(ctx, sessionPrefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Touch extends the session's expiry to now+ttl.
func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	sess.ExpiresAt = time.Now().UTC().Add(ttl)
	return s.Set(ctx, sess)
}

// Destroy removes a session by ID.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// All enumerates the live sessions by scanning the session key space.
func (s *RedisStore) All(ctx context.Context) ([]*models.Session, error) {
	var sessions []*models.Session

	iter := s.client.Scan(ctx, 0, sessionPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get session %s: %w", iter.Val(), err)
		}

		var sess models.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session %s: %w", iter.Val(), err)
		}

		sessions = append(sessions, &sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	return sessions, nil
}

// Clear removes every session key.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, sessionPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan sessions: %w", err)
	}
	return nil
}
