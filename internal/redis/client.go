package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saviobatista/adsb-tracker/internal/session"
)

// sessionTTL keeps entries long enough to survive restarts but not
// forever; a missing entry only costs a database lookup.
const sessionTTL = 24 * time.Hour

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches per-aircraft session state in Redis so session
// continuity survives tracker restarts without a database round trip.
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a client around a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func sessionKey(hexIdent string) string {
	return fmt.Sprintf("session:%s", hexIdent)
}

// SetSession stores the session state for an aircraft
func (c *Client) SetSession(ctx context.Context, hexIdent string, state *session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	return c.client.Set(ctx, sessionKey(hexIdent), data, sessionTTL).Err()
}

// GetSession retrieves the session state for an aircraft, or nil if
// none is cached.
func (c *Client) GetSession(ctx context.Context, hexIdent string) (*session.State, error) {
	data, err := c.client.Get(ctx, sessionKey(hexIdent)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session state: %w", err)
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// DeleteSession removes the cached session state for an aircraft
func (c *Client) DeleteSession(ctx context.Context, hexIdent string) error {
	return c.client.Del(ctx, sessionKey(hexIdent)).Err()
}
