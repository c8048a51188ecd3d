package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/tigerlife/internal/organization/domain"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Create returns ErrDuplicateMembership when the pair already has a row.
	Create(ctx context.Context, m *Membership) error
	FindByUserAndOrganization(ctx context.Context, userID, organizationID snowflake.ID) (*Membership, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Membership, error)
	TransitionStatus(ctx context.Context, id snowflake.ID, from, to orgdomain.Status, at time.Time) (bool, error)
	ListPendingByAdmin(ctx context.Context, adminID snowflake.ID) ([]PendingMember, error)
	// ListPending returns up to limit pending requests across all organizations, oldest first.
	ListPending(ctx context.Context, limit int) ([]PendingMember, error)
}
