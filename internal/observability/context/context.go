// Package obscontext carries request correlation values through context.Context.
package obscontext

import (
	"context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	requestTokenKey
	actorTypeKey
	actorIDKey
)

const (
	ActorTypeUser      = "user"
	ActorTypeAnonymous = "anonymous"
	ActorTypeSystem    = "system"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithRequestToken stores the caller supplied X-Request-Token.
func WithRequestToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, requestTokenKey, strings.TrimSpace(token))
}

func RequestTokenFromContext(ctx context.Context) string {
	return stringValue(ctx, requestTokenKey)
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, actorTypeKey, strings.TrimSpace(actorType))
	return context.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
}

// ActorFromContext returns the actor type and id, defaulting to anonymous.
func ActorFromContext(ctx context.Context) (string, string) {
	actorType := stringValue(ctx, actorTypeKey)
	if actorType == "" {
		actorType = ActorTypeAnonymous
	}
	return actorType, stringValue(ctx, actorIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
