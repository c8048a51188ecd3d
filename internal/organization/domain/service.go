package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	MinNameLength        = 3
	MinDescriptionLength = 10
)

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (*Organization, error)
	Get(ctx context.Context, id snowflake.ID) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
	ListPending(ctx context.Context) ([]Organization, error)
	Approve(ctx context.Context, id snowflake.ID) (*Organization, error)
	Reject(ctx context.Context, id snowflake.ID) (*Organization, error)
	ListUserOrganizations(ctx context.Context, userID snowflake.ID) ([]UserOrganization, error)
}

type CreateOrganizationRequest struct {
	Name        string
	Type        string
	Description string
	CreatorID   snowflake.ID
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidType        = errors.New("invalid_organization_type")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrNotFound           = errors.New("organization_not_found")
	ErrNotPending         = errors.New("organization_not_pending")
)
