package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// SessionStore tracks revoked session ids until the token would have expired
// anyway. Key format: session:revoked:<jti>
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Revoke marks the session as revoked. Sessions already past until are
// ignored since their token no longer verifies.
func (s *SessionStore) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(sessionID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: session revoke: %v", domain.ErrStore, err)
	}
	return nil
}

// IsRevoked reports whether the session was revoked.
func (s *SessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: session lookup: %v", domain.ErrStore, err)
	}
	return n > 0, nil
}

func (s *SessionStore) key(sessionID string) string {
	return "session:revoked:" + sessionID
}
