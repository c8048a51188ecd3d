// Package domain contains the membership workflow types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/tigerlife/internal/organization/domain"
)

// Membership is a user's request to belong to an organization. Each
// (user, organization) pair has at most one row.
type Membership struct {
	ID             snowflake.ID     `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID     `gorm:"column:user_id;not null;uniqueIndex:ux_organization_members_user_org,priority:1" json:"user_id"`
	OrganizationID snowflake.ID     `gorm:"column:organization_id;not null;index;uniqueIndex:ux_organization_members_user_org,priority:2" json:"organization_id"`
	Status         orgdomain.Status `gorm:"type:text;not null;index" json:"status"`
	CreatedAt      time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "organization_members" }

// PendingMember is a pending membership with the details an organization
// admin needs to decide it.
type PendingMember struct {
	Membership
	FirstName        string                     `json:"first_name"`
	LastName         string                     `json:"last_name"`
	Email            string                     `json:"email"`
	GNumber          string                     `json:"g_number"`
	Verified         bool                       `json:"verified"`
	OrganizationName string                     `json:"organization_name"`
	OrganizationType orgdomain.OrganizationType `json:"organization_type"`
	AdminID          snowflake.ID               `json:"-"`
}
