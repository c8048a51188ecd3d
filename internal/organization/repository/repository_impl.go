package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tigerlife/internal/organization/domain"
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

func (r *repository) Create(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Organization{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Organization, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.Organization{})
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}

	orgs := []domain.Organization{}
	if err := stmt.Order("created_at desc, id desc").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id snowflake.ID, from, to domain.Status, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.Organization{}).
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

type memberOrganizationRow struct {
	MembershipID     snowflake.ID
	MembershipStatus domain.Status
	JoinedAt         time.Time
	OrgID            snowflake.ID
	OrgName          string
	OrgSlug          string
	OrgType          domain.OrganizationType
	OrgDescription   string
	OrgCreatorID     snowflake.ID
	OrgAdminID       snowflake.ID
	OrgStatus        domain.Status
	OrgCreatedAt     time.Time
	OrgUpdatedAt     time.Time
}

func (r *repository) ListByMember(ctx context.Context, userID snowflake.ID) ([]domain.UserOrganization, error) {
	var rows []memberOrganizationRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT m.id AS membership_id, m.status AS membership_status, m.created_at AS joined_at,
		        o.id AS org_id, o.name AS org_name, o.slug AS org_slug, o.type AS org_type,
		        o.description AS org_description, o.creator_id AS org_creator_id,
		        o.admin_id AS org_admin_id, o.status AS org_status,
		        o.created_at AS org_created_at, o.updated_at AS org_updated_at
		 FROM organization_members m
		 JOIN organizations o ON o.id = m.organization_id
		 WHERE m.user_id = ?
		 ORDER BY m.created_at DESC, m.id DESC`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.UserOrganization, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.UserOrganization{
			MembershipID:     row.MembershipID,
			MembershipStatus: row.MembershipStatus,
			JoinedAt:         row.JoinedAt,
			Organization: domain.Organization{
				ID:          row.OrgID,
				Name:        row.OrgName,
				Slug:        row.OrgSlug,
				Type:        row.OrgType,
				Description: row.OrgDescription,
				CreatorID:   row.OrgCreatorID,
				AdminID:     row.OrgAdminID,
				Status:      row.OrgStatus,
				CreatedAt:   row.OrgCreatedAt,
				UpdatedAt:   row.OrgUpdatedAt,
			},
		})
	}
	return items, nil
}
