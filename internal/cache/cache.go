// Package cache is the Redis-backed key-value layer: token revocation
// markers, per-identity rate limiting, alert dedup/cooldown windows,
// and job queue visibility leases.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a redis client with the small set of operations the rest
// of the control plane needs; it is not a general-purpose Redis
// abstraction.
type Cache struct {
	client *redis.Client
}

func New(addr, password string, db int) *Cache {
	return &Cache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// revocationKey matches spec.md §4.1's "(userId, sessionId)" marker.
func revocationKey(userID, sessionID string) string {
	return fmt.Sprintf("revoked:%s:%s", userID, sessionID)
}

// Revoke writes a revocation marker that outlives the token it guards
// against, so authMiddleware and every WebSocket validator can refuse
// a token whose session was logged out, until the token would have
// expired anyway.
func (c *Cache) Revoke(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	return c.client.Set(ctx, revocationKey(userID, sessionID), "1", ttl).Err()
}

func (c *Cache) IsRevoked(ctx context.Context, userID, sessionID string) (bool, error) {
	n, err := c.client.Exists(ctx, revocationKey(userID, sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// tokenBucketScript implements a refilling token bucket identical in
// shape to the one used for backpressure limiting elsewhere in the
// corpus, parameterized by rate-per-second/capacity/cost.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    local added = elapsed * rate
    tokens = tokens + added
    if tokens > capacity then
        tokens = capacity
    end
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 120)

return allowed
`)

// Allow checks and consumes from a named rate-limit bucket (login
// attempts, heartbeats, API keys). ratePerMinute/burst describe the
// bucket; cost is normally 1.
func (c *Cache) Allow(ctx context.Context, bucket string, ratePerMinute, burst, cost int) (bool, error) {
	rate := float64(ratePerMinute) / 60.0
	if rate <= 0 {
		rate = 1
	}
	now := float64(time.Now().UnixMicro()) / 1e6
	res, err := tokenBucketScript.Run(ctx, c.client, []string{"ratelimit:" + bucket}, rate, burst, cost, now).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

// Dedup records that an alert/notification with this key fired at
// instant now, and reports whether it is still within the cooldown
// window (meaning: suppress). A fresh key returns false and starts the
// window.
func (c *Cache) Dedup(ctx context.Context, key string, cooldown time.Duration) (withinCooldown bool, err error) {
	ok, err := c.client.SetNX(ctx, "dedup:"+key, "1", cooldown).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// TryLeaseKind wraps a simple SETNX-based visibility lease, the
// Redis-side complement to job_runs' SQL-level SKIP LOCKED claim: used
// by workers that pull a job kind to avoid a thundering herd of
// simultaneous LeaseNextJob polls against Postgres.
func (c *Cache) TryLeaseKind(ctx context.Context, kind string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, "lease:kind:"+kind, "1", ttl).Result()
}

func (c *Cache) ReleaseLeaseKind(ctx context.Context, kind string) error {
	return c.client.Del(ctx, "lease:kind:"+kind).Err()
}
