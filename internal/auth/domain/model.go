// Package domain contains core types for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a registered campus account.
type User struct {
	ID           snowflake.ID `gorm:"column:user_id;primaryKey" json:"user_id"`
	FirstName    string       `gorm:"column:first_name;type:text;not null;default:''" json:"first_name"`
	LastName     string       `gorm:"column:last_name;type:text;not null;default:''" json:"last_name"`
	Email        string       `gorm:"column:email;type:text;not null;uniqueIndex:ux_user_table_email" json:"email"`
	GNumber      string       `gorm:"column:g_number;type:text;not null;default:''" json:"g_number"`
	Verified     bool         `gorm:"column:verified;not null;default:false" json:"verified"`
	IsAdmin      bool         `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	Bio          string       `gorm:"column:bio;type:text;not null;default:''" json:"bio"`
	Avatar       string       `gorm:"column:avatar;type:text;not null;default:''" json:"avatar"`
	Rating       *float64     `gorm:"column:rating" json:"rating"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null" json:"-"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "user_table" }

func (u User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RevokedToken marks an identity token id as signed out.
type RevokedToken struct {
	JTI       string       `gorm:"column:jti;primaryKey;type:text"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt time.Time    `gorm:"column:revoked_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RevokedToken) TableName() string { return "revoked_tokens" }

// Session is the authenticated caller, derived from a valid identity token.
type Session struct {
	UserID    snowflake.ID `json:"user_id"`
	Email     string       `json:"email"`
	IsAdmin   bool         `json:"is_admin"`
	Verified  bool         `json:"verified"`
	TokenID   string       `json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
}
