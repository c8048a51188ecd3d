// Package domain contains persistence models for the organization registry.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the approval state shared by organizations and memberships.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts exactly the three known values, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type OrganizationType string

const (
	TypeAdminFaculty    OrganizationType = "admin_faculty"
	TypeOfficialStudent OrganizationType = "official_student"
	TypeGeneral         OrganizationType = "general"
)

func ParseOrganizationType(raw string) (OrganizationType, error) {
	switch t := OrganizationType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeAdminFaculty, TypeOfficialStudent, TypeGeneral:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, raw)
	}
}

// Organization is a campus group. AdminID is the user who decides its
// membership requests and defaults to the creator.
type Organization struct {
	ID          snowflake.ID     `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"type:text;not null" json:"name"`
	Slug        string           `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Type        OrganizationType `gorm:"column:type;type:text;not null" json:"type"`
	Description string           `gorm:"type:text;not null" json:"description"`
	CreatorID   snowflake.ID     `gorm:"column:creator_id;not null;index" json:"creator_id"`
	AdminID     snowflake.ID     `gorm:"column:admin_id;not null;index" json:"admin_id"`
	Status      Status           `gorm:"type:text;not null;index" json:"status"`
	CreatedAt   time.Time        `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// UserOrganization is one of a user's memberships joined with its organization.
type UserOrganization struct {
	MembershipID     snowflake.ID `json:"membership_id"`
	MembershipStatus Status       `json:"membership_status"`
	JoinedAt         time.Time    `json:"joined_at"`
	Organization     Organization `json:"organization"`
}
