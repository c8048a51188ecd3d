package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) ListMyOrganizations(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	respond(c, s.gateway.GetUserOrganizations(c.Request.Context(), userID))
}

// ListPendingMembers lists join requests for organizations the caller administers.
func (s *Server) ListPendingMembers(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	respond(c, s.gateway.GetPendingMembersForAdmin(c.Request.Context(), userID))
}

func (s *Server) ApproveMember(c *gin.Context) {
	s.decideMember(c, true)
}

func (s *Server) RejectMember(c *gin.Context) {
	s.decideMember(c, false)
}

func (s *Server) decideMember(c *gin.Context, approve bool) {
	callerID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	memberID, err := parseSnowflakeID(c.Param("userId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if approve {
		respond(c, s.gateway.ApproveOrganizationMember(c.Request.Context(), callerID, memberID, orgID))
		return
	}
	respond(c, s.gateway.RejectOrganizationMember(c.Request.Context(), callerID, memberID, orgID))
}
