package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) ListNotifications(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	respond(c, s.gateway.GetNotifications(c.Request.Context(), userID))
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	notificationID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, s.gateway.MarkNotificationRead(c.Request.Context(), userID, notificationID))
}
