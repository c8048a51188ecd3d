// Package domain contains notification types shared by the workflow services.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindMembershipRequested  Kind = "membership.requested"
	KindMembershipApproved   Kind = "membership.approved"
	KindMembershipRejected   Kind = "membership.rejected"
	KindOrganizationApproved Kind = "organization.approved"
	KindOrganizationRejected Kind = "organization.rejected"
)

// Channel is the pub/sub channel notifications are published on.
const Channel = "tigerlife:notifications"

type Notification struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	Kind           Kind         `gorm:"type:text;not null" json:"kind"`
	Message        string       `gorm:"type:text;not null" json:"message"`
	IdempotencyKey string       `gorm:"column:idempotency_key;type:text;not null;uniqueIndex:ux_notifications_idempotency_key" json:"-"`
	ReadAt         *time.Time   `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }

// IdempotencyKey builds the key that makes repeated notifications of the same
// event collapse into one row.
func IdempotencyKey(kind Kind, subjectID snowflake.ID) string {
	return string(kind) + ":" + subjectID.String()
}

type Service interface {
	Notifier
	ListForUser(ctx context.Context, userID snowflake.ID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID snowflake.ID) error
}

type Repository interface {
	// InsertIfAbsent reports false when a row with the same idempotency key exists.
	InsertIfAbsent(ctx context.Context, n *Notification) (bool, error)
	ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID snowflake.ID, at time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

var (
	ErrInvalidNotification = errors.New("invalid_notification")
	ErrNotFound            = errors.New("notification_not_found")
)
