package gateway

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tigerlife/internal/audit/domain"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	"github.com/smallbiznis/tigerlife/internal/authorization"
	membershipdomain "github.com/smallbiznis/tigerlife/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tigerlife/internal/notification/domain"
	obscontext "github.com/smallbiznis/tigerlife/internal/observability/context"
	"github.com/smallbiznis/tigerlife/internal/observability/logger"
	"github.com/smallbiznis/tigerlife/internal/observability/tracing"
	orgdomain "github.com/smallbiznis/tigerlife/internal/organization/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const notificationPageSize = 50

type Params struct {
	fx.In

	Log           *zap.Logger
	Organizations orgdomain.Service
	Memberships   membershipdomain.Service
	Guard         authorization.Service
	Auth          authdomain.Service
	Notifications notificationdomain.Service
	Audit         auditdomain.Service
}

type Gateway struct {
	log           *zap.Logger
	organizations orgdomain.Service
	memberships   membershipdomain.Service
	guard         authorization.Service
	auth          authdomain.Service
	notifications notificationdomain.Service
	audit         auditdomain.Service
}

func New(p Params) *Gateway {
	return &Gateway{
		log:           p.Log.Named("gateway"),
		organizations: p.Organizations,
		memberships:   p.Memberships,
		guard:         p.Guard,
		auth:          p.Auth,
		notifications: p.Notifications,
		audit:         p.Audit,
	}
}

func (g *Gateway) GetOrganizations(ctx context.Context) Result[[]orgdomain.Organization] {
	return run(ctx, g, "get_organizations", func(ctx context.Context) ([]orgdomain.Organization, error) {
		return g.organizations.List(ctx)
	})
}

func (g *Gateway) GetOrganization(ctx context.Context, orgID snowflake.ID) Result[*orgdomain.Organization] {
	return run(ctx, g, "get_organization", func(ctx context.Context) (*orgdomain.Organization, error) {
		return g.organizations.Get(ctx, orgID)
	})
}

func (g *Gateway) GetUserOrganizations(ctx context.Context, userID snowflake.ID) Result[[]orgdomain.UserOrganization] {
	return run(ctx, g, "get_user_organizations", func(ctx context.Context) ([]orgdomain.UserOrganization, error) {
		return g.organizations.ListUserOrganizations(ctx, userID)
	})
}

func (g *Gateway) CreateOrganization(ctx context.Context, name, orgType, description string, creatorID snowflake.ID) Result[*orgdomain.Organization] {
	return run(ctx, g, "create_organization", func(ctx context.Context) (*orgdomain.Organization, error) {
		return g.organizations.Create(ctx, orgdomain.CreateOrganizationRequest{
			Name:        name,
			Type:        orgType,
			Description: description,
			CreatorID:   creatorID,
		})
	})
}

func (g *Gateway) JoinOrganization(ctx context.Context, userID, organizationID snowflake.ID) Result[*membershipdomain.Membership] {
	return run(ctx, g, "join_organization", func(ctx context.Context) (*membershipdomain.Membership, error) {
		return g.memberships.RequestJoin(ctx, userID, organizationID)
	})
}

// GetPendingOrganizations is restricted to global admins.
func (g *Gateway) GetPendingOrganizations(ctx context.Context, callerID snowflake.ID) Result[[]orgdomain.Organization] {
	return run(ctx, g, "get_pending_organizations", func(ctx context.Context) ([]orgdomain.Organization, error) {
		if err := g.guard.CanDecideOrganization(ctx, callerID); err != nil {
			return nil, err
		}
		return g.organizations.ListPending(ctx)
	})
}

func (g *Gateway) ApproveOrganization(ctx context.Context, callerID, orgID snowflake.ID) Result[*orgdomain.Organization] {
	return run(ctx, g, "approve_organization", func(ctx context.Context) (*orgdomain.Organization, error) {
		if err := g.guard.CanDecideOrganization(ctx, callerID); err != nil {
			return nil, err
		}
		return g.organizations.Approve(ctx, orgID)
	})
}

func (g *Gateway) RejectOrganization(ctx context.Context, callerID, orgID snowflake.ID) Result[*orgdomain.Organization] {
	return run(ctx, g, "reject_organization", func(ctx context.Context) (*orgdomain.Organization, error) {
		if err := g.guard.CanDecideOrganization(ctx, callerID); err != nil {
			return nil, err
		}
		return g.organizations.Reject(ctx, orgID)
	})
}

func (g *Gateway) GetPendingMembersForAdmin(ctx context.Context, adminUserID snowflake.ID) Result[[]membershipdomain.PendingMember] {
	return run(ctx, g, "get_pending_members_for_admin", func(ctx context.Context) ([]membershipdomain.PendingMember, error) {
		return g.memberships.ListPendingForAdmin(ctx, adminUserID)
	})
}

func (g *Gateway) ApproveOrganizationMember(ctx context.Context, callerID, userID, organizationID snowflake.ID) Result[*membershipdomain.Membership] {
	return run(ctx, g, "approve_organization_member", func(ctx context.Context) (*membershipdomain.Membership, error) {
		if err := g.guard.CanDecideMembership(ctx, callerID, organizationID); err != nil {
			return nil, err
		}
		return g.memberships.Approve(ctx, userID, organizationID)
	})
}

func (g *Gateway) RejectOrganizationMember(ctx context.Context, callerID, userID, organizationID snowflake.ID) Result[*membershipdomain.Membership] {
	return run(ctx, g, "reject_organization_member", func(ctx context.Context) (*membershipdomain.Membership, error) {
		if err := g.guard.CanDecideMembership(ctx, callerID, organizationID); err != nil {
			return nil, err
		}
		return g.memberships.Reject(ctx, userID, organizationID)
	})
}

// MakeUserAdmin returns the refreshed user after a successful grant.
func (g *Gateway) MakeUserAdmin(ctx context.Context, callerID snowflake.ID, code string) Result[*authdomain.User] {
	return run(ctx, g, "make_user_admin", func(ctx context.Context) (*authdomain.User, error) {
		if err := g.guard.Grant(ctx, callerID, code); err != nil {
			return nil, err
		}
		return g.auth.GetUser(ctx, callerID)
	})
}

func (g *Gateway) VerifyStudent(ctx context.Context, callerID snowflake.ID, gNumber string) Result[*authdomain.User] {
	return run(ctx, g, "verify_student", func(ctx context.Context) (*authdomain.User, error) {
		return g.auth.VerifyStudent(ctx, callerID, gNumber)
	})
}

func (g *Gateway) GetNotifications(ctx context.Context, userID snowflake.ID) Result[[]notificationdomain.Notification] {
	return run(ctx, g, "get_notifications", func(ctx context.Context) ([]notificationdomain.Notification, error) {
		return g.notifications.ListForUser(ctx, userID, notificationPageSize)
	})
}

func (g *Gateway) MarkNotificationRead(ctx context.Context, userID, notificationID snowflake.ID) Result[bool] {
	return run(ctx, g, "mark_notification_read", func(ctx context.Context) (bool, error) {
		if err := g.notifications.MarkRead(ctx, userID, notificationID); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (g *Gateway) GetAuditLogs(ctx context.Context, callerID snowflake.ID, req auditdomain.ListAuditLogRequest) Result[[]auditdomain.AuditLog] {
	return run(ctx, g, "get_audit_logs", func(ctx context.Context) ([]auditdomain.AuditLog, error) {
		if err := g.guard.CanViewAuditLog(ctx, callerID); err != nil {
			return nil, err
		}
		return g.audit.List(ctx, req)
	})
}

func run[T any](ctx context.Context, g *Gateway, op string, fn func(context.Context) (T, error)) (result Result[T]) {
	requestToken := obscontext.RequestTokenFromContext(ctx)
	ctx, span := otel.Tracer("tigerlife/gateway").Start(ctx, "gateway."+op)
	defer span.End()

	log := logger.WithContext(ctx, g.log).With(zap.String("operation", op))

	defer func() {
		if r := recover(); r != nil {
			log.Error("gateway operation panicked", zap.Any("panic", r), zap.Stack("stack"))
			span.SetStatus(codes.Error, "panic")
			result = failure[T](KindRemote, message(KindRemote, nil), requestToken)
		}
	}()

	data, err := fn(ctx)
	if err != nil {
		kind := Classify(err)
		span.SetAttributes(attribute.String("error_kind", string(kind)))
		if kind == KindRemote {
			log.Error("gateway operation failed", zap.Error(err))
			if safeErr := tracing.SafeError(err); safeErr != nil {
				span.RecordError(safeErr)
			}
			span.SetStatus(codes.Error, "remote error")
		} else {
			log.Debug("gateway operation rejected", zap.String("error_kind", string(kind)), zap.Error(err))
		}
		return failure[T](kind, message(kind, err), requestToken)
	}

	return success(data, requestToken)
}
