package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	ObjectOrganization = "organization"
	ObjectMembership   = "membership"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionDecide = "decide"
	ActionView   = "view"
)

const (
	RoleGlobalAdmin = "role:global_admin"
	RoleOrgAdmin    = "role:org_admin"

	// GlobalDomain scopes roles that apply to every organization.
	GlobalDomain = "*"
)

// Service is the admin authorization guard. Every check resolves the caller's
// roles from the store, so a decision depends only on the caller, the
// operation and the target.
type Service interface {
	CanDecideOrganization(ctx context.Context, actorID snowflake.ID) error
	CanDecideMembership(ctx context.Context, actorID, organizationID snowflake.ID) error
	CanViewAuditLog(ctx context.Context, actorID snowflake.ID) error
	// Grant makes userID a global admin when the escalation strategy accepts
	// suppliedCode.
	Grant(ctx context.Context, userID snowflake.ID, suppliedCode string) error
}

var (
	ErrNotAuthorized = errors.New("not_authorized")
	ErrInvalidActor  = errors.New("invalid_actor")
)
