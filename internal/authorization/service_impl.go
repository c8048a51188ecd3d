package authorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	auditdomain "github.com/smallbiznis/tigerlife/internal/audit/domain"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	"github.com/smallbiznis/tigerlife/internal/observability/logger"
	"github.com/smallbiznis/tigerlife/internal/observability/metrics"
	"github.com/smallbiznis/tigerlife/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Enforcer   *casbin.SyncedEnforcer
	Escalation EscalationStrategy
	AuthSvc    authdomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	Limiter    *ratelimit.Limiter  `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
}

type ServiceImpl struct {
	db         *gorm.DB
	log        *zap.Logger
	enforcer   *casbin.SyncedEnforcer
	escalation EscalationStrategy
	authSvc    authdomain.Service
	auditSvc   auditdomain.Service
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:         p.DB,
		log:        p.Log.Named("authorization.service"),
		enforcer:   p.Enforcer,
		escalation: p.Escalation,
		authSvc:    p.AuthSvc,
		auditSvc:   p.AuditSvc,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
	}
}

func (s *ServiceImpl) CanDecideOrganization(ctx context.Context, actorID snowflake.ID) error {
	return s.authorize(ctx, actorID, 0, ObjectOrganization, ActionDecide)
}

func (s *ServiceImpl) CanDecideMembership(ctx context.Context, actorID, organizationID snowflake.ID) error {
	return s.authorize(ctx, actorID, organizationID, ObjectMembership, ActionDecide)
}

func (s *ServiceImpl) CanViewAuditLog(ctx context.Context, actorID snowflake.ID) error {
	return s.authorize(ctx, actorID, 0, ObjectAuditLog, ActionView)
}

func (s *ServiceImpl) authorize(ctx context.Context, actorID, organizationID snowflake.ID, object, action string) error {
	if actorID == 0 {
		return ErrInvalidActor
	}

	subject := subjectFor(actorID)
	domain := GlobalDomain

	isAdmin, err := s.isGlobalAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if err := s.syncGrouping(subject, RoleGlobalAdmin, GlobalDomain, isAdmin); err != nil {
		return err
	}

	if organizationID != 0 {
		domain = domainFor(organizationID)
		administers, err := s.administers(ctx, actorID, organizationID)
		if err != nil {
			return err
		}
		if err := s.syncGrouping(subject, RoleOrgAdmin, domain, administers); err != nil {
			return err
		}
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorID, organizationID, object, action)
		return ErrNotAuthorized
	}
	return nil
}

func (s *ServiceImpl) isGlobalAdmin(ctx context.Context, userID snowflake.ID) (bool, error) {
	var row struct {
		IsAdmin bool `gorm:"column:is_admin"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT is_admin
		 FROM user_table
		 WHERE user_id = ?
		 LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return false, err
	}
	return row.IsAdmin, nil
}

func (s *ServiceImpl) administers(ctx context.Context, userID, organizationID snowflake.ID) (bool, error) {
	var row struct {
		AdminID snowflake.ID `gorm:"column:admin_id"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT admin_id
		 FROM organizations
		 WHERE id = ?
		 LIMIT 1`,
		organizationID,
	).Scan(&row).Error; err != nil {
		return false, err
	}
	return row.AdminID != 0 && row.AdminID == userID, nil
}

// syncGrouping makes the subject's role link in domain match the store.
func (s *ServiceImpl) syncGrouping(subject, roleName, domain string, want bool) error {
	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	switch {
	case want && !has:
		_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	case !want && has:
		_, err = s.enforcer.RemoveGroupingPolicy(subject, roleName, domain)
	}
	return err
}

func (s *ServiceImpl) Grant(ctx context.Context, userID snowflake.ID, suppliedCode string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	log := logger.WithContext(ctx, s.log).With(
		zap.String("user_id", userID.String()),
		zap.String("strategy", s.escalation.Name()),
	)

	if err := s.limiter.Allow(ctx, ratelimit.ActionAdminGrant, userID.String()); err != nil {
		s.recordGrant(ctx, userID, suppliedCode, "denied", "rate_limited")
		log.Warn("admin grant throttled")
		return err
	}

	ok, err := s.escalation.Verify(ctx, userID, suppliedCode)
	if err != nil {
		s.recordGrant(ctx, userID, suppliedCode, "failed", "strategy_error")
		return fmt.Errorf("verify escalation: %w", err)
	}
	if !ok {
		s.recordGrant(ctx, userID, suppliedCode, "denied", "code_mismatch")
		log.Warn("admin grant rejected")
		return ErrNotAuthorized
	}

	if err := s.authSvc.SetAdmin(ctx, userID); err != nil {
		s.recordGrant(ctx, userID, suppliedCode, "failed", "store_error")
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return ErrNotAuthorized
		}
		return err
	}

	s.recordGrant(ctx, userID, suppliedCode, "granted", "")
	log.Info("admin granted")
	return nil
}

func (s *ServiceImpl) recordGrant(ctx context.Context, userID snowflake.ID, suppliedCode, outcome, reason string) {
	s.metrics.RecordAdminGrantAttempt(ctx, outcome, reason)
	if s.auditSvc == nil {
		return
	}
	targetID := userID.String()
	metadata := map[string]any{
		"outcome":  outcome,
		"strategy": s.escalation.Name(),
		"code":     suppliedCode,
	}
	if reason != "" {
		metadata["reason"] = reason
	}
	if err := s.auditSvc.AuditLog(ctx, &targetID, "admin.grant.attempt", "user", &targetID, metadata); err != nil {
		logger.WithContext(ctx, s.log).Warn("audit write failed", zap.Error(err))
	}
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorID, organizationID snowflake.ID, object, action string) {
	if s.auditSvc == nil {
		return
	}
	actor := actorID.String()
	metadata := map[string]any{
		"object":  object,
		"action":  action,
		"subject": subjectFor(actorID),
	}
	var targetID *string
	if organizationID != 0 {
		org := organizationID.String()
		targetID = &org
		metadata["organization_id"] = org
	}
	if err := s.auditSvc.AuditLog(ctx, &actor, "authorization.denied", object, targetID, metadata); err != nil {
		logger.WithContext(ctx, s.log).Warn("audit write failed", zap.Error(err))
	}
}

func subjectFor(userID snowflake.ID) string {
	return fmt.Sprintf("user:%s", userID.String())
}

func domainFor(organizationID snowflake.ID) string {
	return fmt.Sprintf("org:%s", organizationID.String())
}
