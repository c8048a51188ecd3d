package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/tigerlife/internal/audit/domain"
	"github.com/smallbiznis/tigerlife/internal/clock"
	notificationdomain "github.com/smallbiznis/tigerlife/internal/notification/domain"
	"github.com/smallbiznis/tigerlife/internal/observability/logger"
	"github.com/smallbiznis/tigerlife/internal/observability/metrics"
	"github.com/smallbiznis/tigerlife/internal/organization/domain"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	GenID    *snowflake.Node
	Clock    clock.Clock
	Notifier notificationdomain.Notifier
	Audit    auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	notifier notificationdomain.Notifier
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		log:      p.Log.Named("organization.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		notifier: p.Notifier,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	if req.CreatorID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < domain.MinNameLength {
		return nil, domain.ErrInvalidName
	}

	description := strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(description) < domain.MinDescriptionLength {
		return nil, domain.ErrInvalidDescription
	}

	orgType, err := domain.ParseOrganizationType(req.Type)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	org := &domain.Organization{
		ID:          s.genID.Generate(),
		Name:        name,
		Type:        orgType,
		Description: description,
		CreatorID:   req.CreatorID,
		AdminID:     req.CreatorID,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	org.Slug, err = s.uniqueSlug(ctx, org)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, org); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// lost a race on the slug
		org.Slug = suffixedSlug(org)
		if err := s.repo.Create(ctx, org); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordOrganizationCreated(ctx, string(org.Type))
	s.recordAudit(ctx, "organization.created", org, map[string]any{
		"type": string(org.Type),
	})
	logger.WithContext(ctx, s.log).Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("type", string(org.Type)),
	)

	return org, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]domain.Organization, error) {
	return s.repo.List(ctx, domain.ListFilter{})
}

func (s *service) ListPending(ctx context.Context) ([]domain.Organization, error) {
	pending := domain.StatusPending
	return s.repo.List(ctx, domain.ListFilter{Status: &pending})
}

func (s *service) Approve(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	return s.decide(ctx, id, domain.StatusApproved)
}

func (s *service) Reject(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	return s.decide(ctx, id, domain.StatusRejected)
}

func (s *service) ListUserOrganizations(ctx context.Context, userID snowflake.ID) ([]domain.UserOrganization, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.ListByMember(ctx, userID)
}

func (s *service) decide(ctx context.Context, id snowflake.ID, to domain.Status) (*domain.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if org.Status != domain.StatusPending {
		return nil, domain.ErrNotPending
	}

	now := s.clock.Now()
	ok, err := s.repo.TransitionStatus(ctx, id, domain.StatusPending, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotPending
	}
	org.Status = to
	org.UpdatedAt = now

	s.metrics.RecordOrganizationDecision(ctx, string(to))
	s.recordAudit(ctx, "organization."+string(to), org, nil)
	s.notifyAdmin(ctx, org)

	return org, nil
}

func (s *service) notifyAdmin(ctx context.Context, org *domain.Organization) {
	kind := notificationdomain.KindOrganizationApproved
	message := fmt.Sprintf("Your organization %s has been approved.", org.Name)
	if org.Status == domain.StatusRejected {
		kind = notificationdomain.KindOrganizationRejected
		message = fmt.Sprintf("Your organization %s was not approved.", org.Name)
	}

	err := s.notifier.Notify(ctx, notificationdomain.Notification{
		UserID:         org.AdminID,
		Kind:           kind,
		Message:        message,
		IdempotencyKey: notificationdomain.IdempotencyKey(kind, org.ID),
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("organization notification failed",
			zap.String("organization_id", org.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) recordAudit(ctx context.Context, action string, org *domain.Organization, metadata map[string]any) {
	targetID := org.ID.String()
	if err := s.audit.AuditLog(ctx, nil, action, "organization", &targetID, metadata); err != nil {
		logger.WithContext(ctx, s.log).Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *service) uniqueSlug(ctx context.Context, org *domain.Organization) (string, error) {
	base := baseSlug(org.Name)
	taken, err := s.repo.SlugExists(ctx, base)
	if err != nil {
		return "", err
	}
	if taken {
		return suffixedSlug(org), nil
	}
	return base, nil
}

func baseSlug(name string) string {
	if made := slug.Make(name); made != "" {
		return made
	}
	return "organization"
}

func suffixedSlug(org *domain.Organization) string {
	return baseSlug(org.Name) + "-" + strings.ToLower(org.ID.Base36())
}
