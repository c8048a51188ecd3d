package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// bucketScript refills and spends one token atomically. Token counts travel
// as integer millitokens because Lua numbers are truncated on return.
var bucketScript = redis.NewScript(`
local perMs = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local ttlMs = tonumber(ARGV[3])

local t = redis.call("TIME")
local nowMs = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "mt", "at")
local mt = tonumber(state[1])
local at = tonumber(state[2])
if mt == nil then
  mt = capacity
else
  mt = math.min(capacity, mt + math.max(0, nowMs - at) * perMs)
end

local ok = 0
if mt >= 1000 then
  ok = 1
  mt = mt - 1000
end

redis.call("HSET", KEYS[1], "mt", mt, "at", nowMs)
redis.call("PEXPIRE", KEYS[1], ttlMs)
return {ok, math.floor(mt)}
`)

var errBucketUnavailable = errors.New("token bucket unavailable")

// decision is the outcome of spending one token.
type decision struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
}

type tokenBucket struct {
	client *redis.Client
}

func newTokenBucket(client *redis.Client) *tokenBucket {
	if client == nil {
		return nil
	}
	return &tokenBucket{client: client}
}

func (b *tokenBucket) take(ctx context.Context, key string, r rule) (decision, error) {
	if b == nil || b.client == nil {
		return decision{}, errBucketUnavailable
	}
	if err := r.validate(); err != nil {
		return decision{}, err
	}

	// tokens per second equals millitokens per millisecond.
	raw, err := bucketScript.Run(ctx, b.client, []string{key},
		r.rate, r.burst*1000, r.idleTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(raw) != 2 {
		return decision{}, fmt.Errorf("token bucket: unexpected reply of %d values", len(raw))
	}

	d := decision{allowed: raw[0] == 1, remaining: int(raw[1] / 1000)}
	if !d.allowed {
		missing := float64(1000-raw[1]) / 1000
		d.retryAfter = time.Duration(missing / r.rate * float64(time.Second))
	}
	return d, nil
}

func (r rule) validate() error {
	if r.rate <= 0 || r.burst <= 0 {
		return fmt.Errorf("token bucket: rate %v and burst %d must be positive", r.rate, r.burst)
	}
	return nil
}

// idleTTL keeps a bucket around for twice the time it takes to refill.
func (r rule) idleTTL() time.Duration {
	if r.validate() != nil {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(2*float64(r.burst)/r.rate))
	return time.Duration(seconds) * time.Second
}
