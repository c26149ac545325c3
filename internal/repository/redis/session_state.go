package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/race-to-moscow/internal/repository"
)

var (
	_ repository.StateCache    = (*Client)(nil)
	_ repository.ActivityIndex = (*Client)(nil)
)

func stateKey(sessionID string) string { return "session:" + sessionID + ":state" }
func activeKey(ownerID string) string  { return "owner:" + ownerID + ":active" }

// SetState stores the live campaign state. A zero ttl keeps the key forever.
func (c *Client) SetState(ctx context.Context, sessionID string, state json.RawMessage, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, stateKey(sessionID), []byte(state), ttl).Err(); err != nil {
		return fmt.Errorf("set session state: %w", err)
	}
	return nil
}

// GetState returns nil, nil on a cache miss.
func (c *Client) GetState(ctx context.Context, sessionID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session state: %w", err)
	}
	return json.RawMessage(data), nil
}

func (c *Client) DeleteState(ctx context.Context, sessionID string) error {
	if err := c.rdb.Del(ctx, stateKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session state: %w", err)
	}
	return nil
}

// MarkActive records that ownerID played sessionID at t. The set is scored by
// time so RecentSessions can list what a player touched lately.
func (c *Client) MarkActive(ctx context.Context, ownerID, sessionID string, t time.Time) error {
	return c.rdb.ZAdd(ctx, activeKey(ownerID), redis.Z{Score: float64(t.Unix()), Member: sessionID}).Err()
}

// RecentSessions returns up to n session IDs, most recent first.
func (c *Client) RecentSessions(ctx context.Context, ownerID string, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	return c.rdb.ZRevRange(ctx, activeKey(ownerID), 0, n-1).Result()
}

// Forget drops a session from the cache and the owner's recent set.
func (c *Client) Forget(ctx context.Context, ownerID, sessionID string) error {
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, stateKey(sessionID))
	pipe.ZRem(ctx, activeKey(ownerID), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}
