package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	RequestJoin(ctx context.Context, userID, organizationID snowflake.ID) (*Membership, error)
	Approve(ctx context.Context, memberUserID, organizationID snowflake.ID) (*Membership, error)
	Reject(ctx context.Context, memberUserID, organizationID snowflake.ID) (*Membership, error)
	ListPendingForAdmin(ctx context.Context, adminUserID snowflake.ID) ([]PendingMember, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]Membership, error)
	// ReconcileNotifications re-sends request notifications for up to limit
	// pending requests and reports how many were processed.
	ReconcileNotifications(ctx context.Context, limit int) (int, error)
}

var (
	ErrInvalidUser             = errors.New("invalid_user")
	ErrNotFound                = errors.New("membership_not_found")
	ErrDuplicateMembership     = errors.New("duplicate_membership")
	ErrNotPending              = errors.New("membership_not_pending")
	ErrOrganizationNotApproved = errors.New("organization_not_approved")
)
