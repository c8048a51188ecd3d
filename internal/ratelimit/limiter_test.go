package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLimiterWithoutRedisAllowsEverything(t *testing.T) {
	limiter := NewLimiter(nil, zaptest.NewLogger(t))
	assert.False(t, limiter.Enabled())

	for i := 0; i < 20; i++ {
		assert.NoError(t, limiter.Allow(context.Background(), ActionAdminGrant, "42"))
	}

	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Allow(context.Background(), ActionLogin, "1.2.3.4"))
}

func TestTokenBucketRequiresClient(t *testing.T) {
	assert.Nil(t, newTokenBucket(nil))

	var bucket *tokenBucket
	_, err := bucket.take(context.Background(), "k", rule{rate: 1, burst: 1})
	assert.ErrorIs(t, err, errBucketUnavailable)
}

func TestRuleIdleTTL(t *testing.T) {
	assert.Equal(t, time.Second, rule{rate: 0, burst: 5}.idleTTL())
	assert.Equal(t, 40*time.Second, rule{rate: 0.5, burst: 10}.idleTTL())
	assert.Equal(t, time.Second, rule{rate: 100, burst: 1}.idleTTL())
	assert.Equal(t, 6000*time.Second, defaultRules[ActionAdminGrant].idleTTL())
}

func TestRuleValidate(t *testing.T) {
	assert.NoError(t, rule{rate: 1, burst: 1}.validate())
	assert.Error(t, rule{rate: 1}.validate())
	assert.Error(t, rule{burst: 1}.validate())
}

func TestUnknownActionIsNotLimited(t *testing.T) {
	limiter := &Limiter{log: zaptest.NewLogger(t), bucket: &tokenBucket{}, rules: defaultRules}
	assert.True(t, limiter.Enabled())
	assert.NoError(t, limiter.Allow(context.Background(), Action("export"), "7"))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLimiterRejectsAdminGrantAfterBurst(t *testing.T) {
	_, client := newRedis(t)
	limiter := NewLimiter(client, zaptest.NewLogger(t))
	require.True(t, limiter.Enabled())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Allow(ctx, ActionAdminGrant, "42"), "attempt %d", i+1)
	}
	assert.ErrorIs(t, limiter.Allow(ctx, ActionAdminGrant, "42"), ErrRateLimited)
	assert.ErrorIs(t, limiter.Allow(ctx, ActionAdminGrant, "42"), ErrRateLimited)

	// Buckets are per subject and per action.
	assert.NoError(t, limiter.Allow(ctx, ActionAdminGrant, "43"))
	assert.NoError(t, limiter.Allow(ctx, ActionLogin, "42"))
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	mr, client := newRedis(t)
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	bucket := newTokenBucket(client)
	r := defaultRules[ActionAdminGrant]
	key := fmt.Sprintf(keyFormat, ActionAdminGrant, "7")
	ctx := context.Background()

	for i := 0; i < r.burst; i++ {
		d, err := bucket.take(ctx, key, r)
		require.NoError(t, err)
		require.True(t, d.allowed)
		assert.Equal(t, r.burst-1-i, d.remaining)
	}

	d, err := bucket.take(ctx, key, r)
	require.NoError(t, err)
	assert.False(t, d.allowed)
	assert.Equal(t, 10*time.Minute, d.retryAfter)
	assert.Equal(t, r.idleTTL(), mr.TTL(key))

	mr.SetTime(start.Add(11 * time.Minute))
	d, err = bucket.take(ctx, key, r)
	require.NoError(t, err)
	assert.True(t, d.allowed)
	assert.Equal(t, 0, d.remaining)
}

func TestLimiterAllowsWhenRedisFails(t *testing.T) {
	mr, client := newRedis(t)
	limiter := NewLimiter(client, zaptest.NewLogger(t))
	mr.Close()

	assert.NoError(t, limiter.Allow(context.Background(), ActionLogin, "10.0.0.1"))
}
