package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	"github.com/smallbiznis/tigerlife/internal/gateway"
	obscontext "github.com/smallbiznis/tigerlife/internal/observability/context"
	"github.com/smallbiznis/tigerlife/internal/ratelimit"
	"go.uber.org/zap"
)

type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	GNumber   string `json:"g_number"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      *authdomain.User `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (s *Server) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.authsvc.SignUp(c.Request.Context(), authdomain.SignUpRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		GNumber:   strings.TrimSpace(req.GNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ok(c, user))
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.limiter.Allow(ctx, ratelimit.ActionLogin, c.ClientIP()); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.SignInWithPassword(ctx, email, req.Password)
	if err != nil {
		s.audit(c, nil, "user.login_failed", nil, map[string]any{"email": email})
		AbortWithError(c, err)
		return
	}

	userID := result.User.ID.String()
	c.Request = c.Request.WithContext(obscontext.WithActor(ctx, obscontext.ActorTypeUser, userID))
	s.audit(c, &userID, "user.login", &userID, nil)

	s.sessions.Set(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, ok(c, loginResponse{
		User:      result.User,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}))
}

func (s *Server) Logout(c *gin.Context) {
	if token, found := s.sessions.ReadToken(c); found {
		if err := s.authsvc.SignOut(c.Request.Context(), token); err != nil {
			s.log.Debug("sign out with unusable token", zap.Error(err))
		}
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, ok(c, true))
}

func (s *Server) Me(c *gin.Context) {
	userID, found := s.userIDFromSession(c)
	if !found {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(c, user))
}

func (s *Server) audit(c *gin.Context, actorID *string, action string, targetID *string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), actorID, action, "user", targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func ok[T any](c *gin.Context, data T) gateway.Result[T] {
	return gateway.Result[T]{
		Success:      true,
		Data:         data,
		RequestToken: obscontext.RequestTokenFromContext(c.Request.Context()),
	}
}
