package livestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record is the live view of one attendance mark, buffered in redis for the
// duration of a session. The database row is the source of truth; the buffer
// exists so session-end reconciliation can repair rows lost to mid-request
// failures, and so live dashboards avoid hitting postgres per poll.
type Record struct {
	UserID      uint      `json:"user_id"`
	MarkedAt    time.Time `json:"marked_at"`
	Method      string    `json:"method"`
	IsLate      bool      `json:"is_late"`
	MinutesLate int       `json:"minutes_late"`
	MarkedByID  *uint     `json:"marked_by_id,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
}

// sessionTTL bounds how long an abandoned session buffer lingers.
const sessionTTL = 24 * time.Hour

// Store is the redis-backed live attendance buffer, one hash per session
// keyed by user ID.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func sessionKey(sessionID uint) string {
	return fmt.Sprintf("live:session:%d:attendance", sessionID)
}

// Add records a mark in the session buffer. Overwrites any previous record
// for the user so retried marks converge on the latest state.
func (s *Store) Add(ctx context.Context, sessionID uint, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal live record: %w", err)
	}

	key := sessionKey(sessionID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fmt.Sprintf("%d", record.UserID), data)
	pipe.Expire(ctx, key, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to buffer live record: %w", err)
	}
	return nil
}

// Get returns the buffered record for a user, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, sessionID, userID uint) (*Record, error) {
	data, err := s.client.HGet(ctx, sessionKey(sessionID), fmt.Sprintf("%d", userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read live record: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal live record: %w", err)
	}
	return &record, nil
}

// List returns all buffered records for the session.
func (s *Store) List(ctx context.Context, sessionID uint) ([]Record, error) {
	entries, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read live buffer: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, raw := range entries {
		var record Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal live record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Remove deletes one user's buffered record (bulk ABSENT corrections).
func (s *Store) Remove(ctx context.Context, sessionID, userID uint) error {
	return s.client.HDel(ctx, sessionKey(sessionID), fmt.Sprintf("%d", userID)).Err()
}

// Count returns the number of buffered records.
func (s *Store) Count(ctx context.Context, sessionID uint) (int64, error) {
	return s.client.HLen(ctx, sessionKey(sessionID)).Result()
}

// Clear drops the session buffer after reconciliation.
func (s *Store) Clear(ctx context.Context, sessionID uint) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}
