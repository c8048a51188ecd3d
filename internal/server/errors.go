package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tigerlife/internal/gateway"
	obscontext "github.com/smallbiznis/tigerlife/internal/observability/context"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidID      = errors.New("invalid_id")
)

// ErrorHandlingMiddleware renders errors attached with AbortWithError using
// the same envelope the gateway returns.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		kind := classify(lastErr.Err)
		message := lastErr.Err.Error()
		if kind == gateway.KindRemote {
			message = "internal server error"
		}
		c.AbortWithStatusJSON(statusForKind(kind), gateway.Result[any]{
			Error:        &message,
			ErrorKind:    kind,
			RequestToken: obscontext.RequestTokenFromContext(c.Request.Context()),
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// respond writes a gateway result with the status code of its error kind.
func respond[T any](c *gin.Context, result gateway.Result[T]) {
	status := http.StatusOK
	if !result.Success {
		status = statusForKind(result.ErrorKind)
		if result.Error != nil {
			_ = c.Error(&resultError{kind: result.ErrorKind, message: *result.Error}).SetType(gin.ErrorTypePrivate)
		}
	}
	c.JSON(status, result)
}

func respondCreated[T any](c *gin.Context, result gateway.Result[T]) {
	if result.Success {
		c.JSON(http.StatusCreated, result)
		return
	}
	respond(c, result)
}

// resultError records a failed gateway result for the request logger.
type resultError struct {
	kind    gateway.ErrorKind
	message string
}

func (e *resultError) Error() string { return e.message }

func classify(err error) gateway.ErrorKind {
	var rErr *resultError
	if errors.As(err, &rErr) {
		return rErr.kind
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return gateway.KindUnauthenticated
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidID):
		return gateway.KindValidation
	default:
		return gateway.Classify(err)
	}
}

func statusForKind(kind gateway.ErrorKind) int {
	switch kind {
	case gateway.KindValidation:
		return http.StatusBadRequest
	case gateway.KindDuplicateMembership, gateway.KindConflict:
		return http.StatusConflict
	case gateway.KindNotAuthorized:
		return http.StatusForbidden
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindUnauthenticated:
		return http.StatusUnauthorized
	case gateway.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func classifyErrorForLog(err error) string {
	if err == nil {
		return ""
	}
	return string(classify(err))
}
