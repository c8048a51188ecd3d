package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/tigerlife/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]domain.AuditLog, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.AuditLog{})
	for _, cond := range []struct{ column, value string }{
		{"action", filter.Action},
		{"target_type", filter.TargetType},
		{"target_id", filter.TargetID},
		{"actor_id", filter.ActorID},
	} {
		if value := strings.TrimSpace(cond.value); value != "" {
			stmt = stmt.Where(cond.column+" = ?", value)
		}
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var logs []domain.AuditLog
	err := stmt.Order("created_at DESC").Order("id DESC").Find(&logs).Error
	return logs, err
}
