package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/tigerlife/internal/audit/domain"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	"github.com/smallbiznis/tigerlife/internal/auth/session"
	"github.com/smallbiznis/tigerlife/internal/config"
	"github.com/smallbiznis/tigerlife/internal/gateway"
	"github.com/smallbiznis/tigerlife/internal/observability"
	obsmiddleware "github.com/smallbiznis/tigerlife/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tigerlife/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tigerlife/internal/observability/tracing"
	"github.com/smallbiznis/tigerlife/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:         obsCfg.Debug(),
		ClassifyError: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	gateway  *gateway.Gateway
	authsvc  authdomain.Service
	auditSvc auditdomain.Service
	sessions *session.Manager
	limiter  *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	Gateway  *gateway.Gateway
	Authsvc  authdomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
	Sessions *session.Manager
	Limiter  *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		log:      p.Log.Named("http.server"),
		gateway:  p.Gateway,
		authsvc:  p.Authsvc,
		auditSvc: p.AuditSvc,
		sessions: p.Sessions,
		limiter:  p.Limiter,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterRoutes mounts every route group on the engine.
func (s *Server) RegisterRoutes() {
	s.RegisterAuthRoutes()
	s.RegisterAPIRoutes()
	s.RegisterAdminRoutes()
}

func (s *Server) RegisterAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.SignUp)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	orgs := api.Group("/organizations")
	{
		orgs.GET("", s.ListOrganizations)
		orgs.POST("", s.CreateOrganization)
		orgs.GET("/:id", s.GetOrganization)
		orgs.POST("/:id/join", s.JoinOrganization)
	}

	me := api.Group("/me")
	{
		me.GET("/organizations", s.ListMyOrganizations)
		me.POST("/verify", s.VerifyStudent)
		me.POST("/admin-grant", s.AdminGrant)
		me.GET("/notifications", s.ListNotifications)
		me.POST("/notifications/:id/read", s.MarkNotificationRead)
	}
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired())

	admin.GET("/organizations/pending", s.ListPendingOrganizations)
	admin.POST("/organizations/:id/approve", s.ApproveOrganization)
	admin.POST("/organizations/:id/reject", s.RejectOrganization)

	admin.GET("/memberships/pending", s.ListPendingMembers)
	admin.POST("/organizations/:id/members/:userId/approve", s.ApproveMember)
	admin.POST("/organizations/:id/members/:userId/reject", s.RejectMember)

	admin.GET("/audit-logs", s.ListAuditLogs)
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(RunHTTP),
)
