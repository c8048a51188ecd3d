package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	obscontext "github.com/smallbiznis/tigerlife/internal/observability/context"
)

const contextSessionKey = "session"

// AuthRequired resolves the caller's session from the bearer token or cookie
// and records the caller as the request actor.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sess, err := s.authsvc.GetSession(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), obscontext.ActorTypeUser, sess.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextSessionKey, sess)
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) (*authdomain.Session, bool) {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*authdomain.Session)
	return sess, ok && sess != nil
}

func (s *Server) userIDFromSession(c *gin.Context) (snowflake.ID, bool) {
	sess, ok := sessionFromContext(c)
	if !ok || sess.UserID == 0 {
		return 0, false
	}
	return sess.UserID, true
}
