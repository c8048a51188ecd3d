package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tigerlife/internal/membership/domain"
	orgdomain "github.com/smallbiznis/tigerlife/internal/organization/domain"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, m *domain.Membership) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateMembership
	}
	return err
}

func (r *repository) FindByUserAndOrganization(ctx context.Context, userID, organizationID snowflake.ID) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Membership, error) {
	items := []domain.Membership{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id snowflake.ID, from, to orgdomain.Status, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

const pendingMemberSelect = `SELECT m.id, m.user_id, m.organization_id, m.status, m.created_at, m.updated_at,
        u.first_name, u.last_name, u.email, u.g_number, u.verified,
        o.name AS organization_name, o.type AS organization_type, o.admin_id
 FROM organization_members m
 JOIN organizations o ON o.id = m.organization_id
 JOIN user_table u ON u.user_id = m.user_id`

func (r *repository) ListPendingByAdmin(ctx context.Context, adminID snowflake.ID) ([]domain.PendingMember, error) {
	items := []domain.PendingMember{}
	err := r.db.WithContext(ctx).Raw(
		pendingMemberSelect+`
		 WHERE o.admin_id = ? AND m.status = ?
		 ORDER BY m.created_at ASC, m.id ASC`,
		adminID,
		orgdomain.StatusPending,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]domain.PendingMember, error) {
	if limit <= 0 {
		limit = 100
	}
	items := []domain.PendingMember{}
	err := r.db.WithContext(ctx).Raw(
		pendingMemberSelect+`
		 WHERE m.status = ?
		 ORDER BY m.created_at ASC, m.id ASC
		 LIMIT ?`,
		orgdomain.StatusPending,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
