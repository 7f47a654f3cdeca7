package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/service"

	"github.com/go-redis/redis/v8"
)

const sessionPrefix = "session:"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Sessions returns a session store backed by this client
func (c *Client) Sessions() *Sessions {
	return &Sessions{rdb: c.rdb}
}

// Sessions keeps operator sessions as JSON values under session:<token>.
// Expiring sessions carry a matching key TTL.
type Sessions struct {
	rdb *redis.Client
}

var _ service.SessionStore = (*Sessions)(nil)

func sessionKey(token string) string {
	return sessionPrefix + token
}

// Create stores a session
func (s *Sessions) Create(ctx context.Context, session *service.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Duration(0)
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	if err := s.rdb.Set(ctx, sessionKey(session.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get loads a session by token
func (s *Sessions) Get(ctx context.Context, token string) (*service.Session, error) {
	payload, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session service.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Expired(time.Now()) {
		return nil, models.ErrSessionNotFound
	}
	return &session, nil
}

// Delete removes a session
func (s *Sessions) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}

// RevokeAll deletes every session key
func (s *Sessions) RevokeAll(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		revoked int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, sessionPrefix+"*", 100).Result()
		if err != nil {
			return revoked, fmt.Errorf("failed to scan sessions: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return revoked, fmt.Errorf("failed to revoke sessions: %w", err)
			}
			revoked += int(n)
		}
		if next == 0 {
			return revoked, nil
		}
		cursor = next
	}
}
