package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status *Status
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Organization, error)
	// TransitionStatus moves the organization from one status to another and
	// reports false when it was not in the expected status.
	TransitionStatus(ctx context.Context, id snowflake.ID, from, to Status, at time.Time) (bool, error)
	ListByMember(ctx context.Context, userID snowflake.ID) ([]UserOrganization, error)
}
