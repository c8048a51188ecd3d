package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tigerlife/internal/audit/domain"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"github.com/smallbiznis/tigerlife/internal/config"
	"github.com/smallbiznis/tigerlife/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tigerlife/internal/notification/domain"
	"github.com/smallbiznis/tigerlife/internal/observability/logger"
	"github.com/smallbiznis/tigerlife/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/tigerlife/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	OrgRepo  orgdomain.Repository
	Policy   *config.MembershipPolicyHolder
	Notifier notificationdomain.Notifier
	Audit    auditdomain.Service
	GenID    *snowflake.Node
	Clock    clock.Clock
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	log      *zap.Logger
	repo     domain.Repository
	orgRepo  orgdomain.Repository
	policy   *config.MembershipPolicyHolder
	notifier notificationdomain.Notifier
	audit    auditdomain.Service
	genID    *snowflake.Node
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		log:      p.Log.Named("membership.service"),
		repo:     p.Repo,
		orgRepo:  p.OrgRepo,
		policy:   p.Policy,
		notifier: p.Notifier,
		audit:    p.Audit,
		genID:    p.GenID,
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

// RequestJoin records a pending membership and notifies the organization
// admin. The notification is best effort; ListPendingForAdmin re-creates
// any that went missing.
func (s *service) RequestJoin(ctx context.Context, userID, organizationID snowflake.ID) (*domain.Membership, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	org, err := s.orgRepo.FindByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range existing {
		if m.OrganizationID == organizationID {
			s.metrics.RecordMembershipRequest(ctx, "duplicate")
			return nil, domain.ErrDuplicateMembership
		}
	}

	now := s.clock.Now()
	membership := &domain.Membership{
		ID:             s.genID.Generate(),
		UserID:         userID,
		OrganizationID: organizationID,
		Status:         orgdomain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, membership); err != nil {
		if errors.Is(err, domain.ErrDuplicateMembership) {
			s.metrics.RecordMembershipRequest(ctx, "duplicate")
		} else {
			s.metrics.RecordMembershipRequest(ctx, "failed")
		}
		return nil, err
	}
	s.metrics.RecordMembershipRequest(ctx, "created")

	logger.WithContext(ctx, s.log).Info("membership requested",
		zap.String("membership_id", membership.ID.String()),
		zap.String("organization_id", organizationID.String()),
	)

	s.notify(ctx, requestedNotification(membership.ID, org.AdminID, org.Name))

	return membership, nil
}

func (s *service) Approve(ctx context.Context, memberUserID, organizationID snowflake.ID) (*domain.Membership, error) {
	return s.decide(ctx, memberUserID, organizationID, orgdomain.StatusApproved)
}

func (s *service) Reject(ctx context.Context, memberUserID, organizationID snowflake.ID) (*domain.Membership, error) {
	return s.decide(ctx, memberUserID, organizationID, orgdomain.StatusRejected)
}

func (s *service) decide(ctx context.Context, memberUserID, organizationID snowflake.ID, to orgdomain.Status) (*domain.Membership, error) {
	membership, err := s.repo.FindByUserAndOrganization(ctx, memberUserID, organizationID)
	if err != nil {
		return nil, err
	}
	if membership.Status != orgdomain.StatusPending {
		return nil, domain.ErrNotPending
	}

	org, err := s.orgRepo.FindByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if to == orgdomain.StatusApproved && org.Status != orgdomain.StatusApproved && !s.policy.Get().IsExempt(string(org.Type)) {
		return nil, domain.ErrOrganizationNotApproved
	}

	now := s.clock.Now()
	ok, err := s.repo.TransitionStatus(ctx, membership.ID, orgdomain.StatusPending, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotPending
	}
	membership.Status = to
	membership.UpdatedAt = now

	s.metrics.RecordMembershipDecision(ctx, string(to))

	targetID := membership.ID.String()
	if err := s.audit.AuditLog(ctx, nil, "membership."+string(to), "membership", &targetID, map[string]any{
		"organization_id": organizationID.String(),
		"member_user_id":  memberUserID.String(),
	}); err != nil {
		logger.WithContext(ctx, s.log).Warn("audit write failed", zap.Error(err))
	}

	s.notify(ctx, decisionNotification(membership, org.Name))

	return membership, nil
}

// ListPendingForAdmin returns pending requests of organizations administered
// by adminUserID and backfills any missing request notifications.
func (s *service) ListPendingForAdmin(ctx context.Context, adminUserID snowflake.ID) ([]domain.PendingMember, error) {
	if adminUserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListPendingByAdmin(ctx, adminUserID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		s.notify(ctx, requestedNotification(item.ID, adminUserID, item.OrganizationName))
	}

	return items, nil
}

func (s *service) ReconcileNotifications(ctx context.Context, limit int) (int, error) {
	items, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		s.notify(ctx, requestedNotification(item.ID, item.AdminID, item.OrganizationName))
	}
	return len(items), nil
}

func (s *service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.Membership, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) notify(ctx context.Context, n notificationdomain.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.WithContext(ctx, s.log).Warn("membership notification failed",
			zap.String("kind", string(n.Kind)),
			zap.String("idempotency_key", n.IdempotencyKey),
			zap.Error(err),
		)
	}
}

func requestedNotification(membershipID, adminID snowflake.ID, orgName string) notificationdomain.Notification {
	return notificationdomain.Notification{
		UserID:         adminID,
		Kind:           notificationdomain.KindMembershipRequested,
		Message:        fmt.Sprintf("New membership request for %s.", orgName),
		IdempotencyKey: notificationdomain.IdempotencyKey(notificationdomain.KindMembershipRequested, membershipID),
	}
}

func decisionNotification(m *domain.Membership, orgName string) notificationdomain.Notification {
	kind := notificationdomain.KindMembershipApproved
	message := fmt.Sprintf("Your request to join %s was approved.", orgName)
	if m.Status == orgdomain.StatusRejected {
		kind = notificationdomain.KindMembershipRejected
		message = fmt.Sprintf("Your request to join %s was declined.", orgName)
	}
	return notificationdomain.Notification{
		UserID:         m.UserID,
		Kind:           kind,
		Message:        message,
		IdempotencyKey: notificationdomain.IdempotencyKey(kind, m.ID),
	}
}
