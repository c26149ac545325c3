//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/race-to-moscow/internal/testutil"
)

var testRDB *goredis.Client

func setup(t *testing.T) *Client {
	t.Helper()
	if testRDB == nil {
		testRDB = testutil.SetupRedis(t)
	}
	testutil.CleanupRedis(t, testRDB)
	return NewClientFromPool(testRDB)
}

func TestStateRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	state := json.RawMessage(`{"version":3,"turn":2,"phase":"idle"}`)
	if err := c.SetState(ctx, "s1", state, time.Hour); err != nil {
		t.Fatalf("set state: %v", err)
	}
	got, err := c.GetState(ctx, "s1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	var fetched map[string]any
	if err := json.Unmarshal(got, &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched["phase"] != "idle" || fetched["version"].(float64) != 3 {
		t.Fatalf("state round-trip failed: %s", got)
	}

	ttl := testRDB.TTL(ctx, stateKey("s1")).Val()
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl within an hour, got %v", ttl)
	}
}

func TestStateMissAndDelete(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	got, err := c.GetState(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("expected nil miss, got %s, %v", got, err)
	}

	c.SetState(ctx, "s2", json.RawMessage(`{}`), 0)
	if err := c.DeleteState(ctx, "s2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = c.GetState(ctx, "s2")
	if got != nil {
		t.Fatal("expected state gone after delete")
	}
}

func TestRecentSessions(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	now := time.Now()

	c.MarkActive(ctx, "u1", "old", now.Add(-time.Hour))
	c.MarkActive(ctx, "u1", "new", now)
	c.MarkActive(ctx, "u1", "mid", now.Add(-time.Minute))

	ids, err := c.RecentSessions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(ids) != 2 || ids[0] != "new" || ids[1] != "mid" {
		t.Fatalf("unexpected order: %v", ids)
	}

	c.SetState(ctx, "new", json.RawMessage(`{}`), 0)
	if err := c.Forget(ctx, "u1", "new"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	ids, _ = c.RecentSessions(ctx, "u1", 10)
	if len(ids) != 2 || ids[0] != "mid" {
		t.Fatalf("expected new forgotten, got %v", ids)
	}
	if st, _ := c.GetState(ctx, "new"); st != nil {
		t.Fatal("expected cached state dropped")
	}
}
