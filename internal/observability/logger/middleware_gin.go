package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/tigerlife/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	HeaderRequestID    = "X-Request-Id"
	HeaderRequestToken = "X-Request-Token"

	maxCorrelationLen = 128
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	// Debug attaches a stack trace to requests that ended with an error.
	Debug bool
	// ClassifyError maps a handler error to a stable kind for the log line.
	ClassifyError func(err error) string
}

// GinMiddleware stores the correlation identifiers on the request context,
// echoes them in the response, and writes one access log line per request.
// Malformed inbound ids are replaced rather than trusted.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID, ok := correlationValue(c.GetHeader(HeaderRequestID))
		if !ok {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)

		if token, ok := correlationValue(c.GetHeader(HeaderRequestToken)); ok {
			c.Header(HeaderRequestToken, token)
			ctx = obscontext.WithRequestToken(ctx, token)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if last := c.Errors.Last(); last != nil {
			if cfg.ClassifyError != nil {
				fields = append(fields, zap.String("error_kind", cfg.ClassifyError(last.Err)))
			}
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		FromContext(c.Request.Context()).Log(accessLevel(route, status), "http request", fields...)
	}
}

// correlationValue accepts short printable ASCII ids without spaces.
func correlationValue(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" || len(value) > maxCorrelationLen {
		return "", false
	}
	for i := 0; i < len(value); i++ {
		if value[i] <= ' ' || value[i] > '~' {
			return "", false
		}
	}
	return value, true
}

func accessLevel(route string, status int) zapcore.Level {
	switch {
	case route == "/health" || route == "/metrics":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
