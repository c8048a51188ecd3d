package server

import (
	"github.com/gin-gonic/gin"
)

type verifyStudentRequest struct {
	GNumber string `json:"g_number"`
}

type adminGrantRequest struct {
	Code string `json:"code"`
}

func (s *Server) VerifyStudent(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req verifyStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	respond(c, s.gateway.VerifyStudent(c.Request.Context(), userID, req.GNumber))
}

func (s *Server) AdminGrant(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req adminGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	respond(c, s.gateway.MakeUserAdmin(c.Request.Context(), userID, req.Code))
}
