package domain

import (
	"context"
	"errors"
)

type Repository interface {
	Insert(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, filter ListFilter) ([]AuditLog, error)
}

type ListAuditLogRequest struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	Limit      int
}

type Service interface {
	AuditLog(ctx context.Context, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) ([]AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid_action")
