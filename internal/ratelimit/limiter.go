package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("rate_limited")

type Action string

const (
	ActionAdminGrant Action = "admin_grant"
	ActionLogin      Action = "login"
)

type rule struct {
	rate  float64
	burst int
}

// Admin grant attempts refill one token every ten minutes.
var defaultRules = map[Action]rule{
	ActionAdminGrant: {rate: 1.0 / 600, burst: 5},
	ActionLogin:      {rate: 0.5, burst: 10},
}

const keyFormat = "tigerlife:ratelimit:%s:%s"

// Limiter throttles sensitive actions per subject. A nil Redis client
// disables limiting and every call is allowed.
type Limiter struct {
	log    *zap.Logger
	bucket *tokenBucket
	rules  map[Action]rule
}

func NewLimiter(client *redis.Client, log *zap.Logger) *Limiter {
	return &Limiter{
		log:    log.Named("ratelimit"),
		bucket: newTokenBucket(client),
		rules:  defaultRules,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow returns ErrRateLimited when subject exhausted its budget for action.
// Redis failures are logged and the call is allowed.
func (l *Limiter) Allow(ctx context.Context, action Action, subject string) error {
	if !l.Enabled() {
		return nil
	}
	r, ok := l.rules[action]
	if !ok {
		return nil
	}

	key := fmt.Sprintf(keyFormat, action, strings.TrimSpace(subject))
	result, err := l.bucket.take(ctx, key, r)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("action", string(action)), zap.Error(err))
		return nil
	}
	if !result.allowed {
		l.log.Info("rate limited",
			zap.String("action", string(action)),
			zap.Duration("retry_after", result.retryAfter),
		)
		return ErrRateLimited
	}
	return nil
}
