package activity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/pagination"
)

// Repository exposes activity log persistence. Rows are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, row *models.ManagerActivityLog) error
	List(ctx context.Context, filter Filter) ([]models.ManagerActivityLog, error)
	CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an activity repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, row *models.ManagerActivityLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.ManagerActivityLog, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ManagerActivityLog{}).
		Where("branch_id = ?", filter.BranchID)

	if filter.ManagerID != nil {
		q = q.Where("manager_id = ?", *filter.ManagerID)
	}
	if filter.Action != nil {
		q = q.Where("action = ?", *filter.Action)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}

	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ManagerActivityLog
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Page.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ManagerActivityLog{}).
		Where("branch_id = ?", branchID).
		Count(&count).Error
	return count, err
}
