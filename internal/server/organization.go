package server

import (
	"github.com/gin-gonic/gin"
)

type createOrganizationRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (s *Server) ListOrganizations(c *gin.Context) {
	respond(c, s.gateway.GetOrganizations(c.Request.Context()))
}

func (s *Server) GetOrganization(c *gin.Context) {
	orgID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, s.gateway.GetOrganization(c.Request.Context(), orgID))
}

func (s *Server) CreateOrganization(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	respondCreated(c, s.gateway.CreateOrganization(c.Request.Context(), req.Name, req.Type, req.Description, userID))
}

func (s *Server) JoinOrganization(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, s.gateway.JoinOrganization(c.Request.Context(), userID, orgID))
}

func (s *Server) ListPendingOrganizations(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	respond(c, s.gateway.GetPendingOrganizations(c.Request.Context(), userID))
}

func (s *Server) ApproveOrganization(c *gin.Context) {
	s.decideOrganization(c, true)
}

func (s *Server) RejectOrganization(c *gin.Context) {
	s.decideOrganization(c, false)
}

func (s *Server) decideOrganization(c *gin.Context, approve bool) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if approve {
		respond(c, s.gateway.ApproveOrganization(c.Request.Context(), userID, orgID))
		return
	}
	respond(c, s.gateway.RejectOrganization(c.Request.Context(), userID, orgID))
}
