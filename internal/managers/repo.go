package managers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
)

// Repository exposes branch manager persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, manager *models.BranchManager) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BranchManager, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.BranchManager, error)
	FindByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) (*models.BranchManager, error)
	DemoteSiblingPrimaries(ctx context.Context, branchID uuid.UUID, exceptID uuid.UUID) error
	Save(ctx context.Context, manager *models.BranchManager) error
	SoftDelete(ctx context.Context, id uuid.UUID, removedAt time.Time) error
	ListActive(ctx context.Context, branchID uuid.UUID) ([]models.BranchManager, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.BranchManager, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a managers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, manager *models.BranchManager) error {
	return r.db.WithContext(ctx).Create(manager).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BranchManager, error) {
	var manager models.BranchManager
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&manager).Error
	if err != nil {
		return nil, err
	}
	return &manager, nil
}

// FindByIDForUpdate loads the row under SELECT .. FOR UPDATE so concurrent
// primary promotions serialize on the same manager.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.BranchManager, error) {
	var manager models.BranchManager
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&manager).Error
	if err != nil {
		return nil, err
	}
	return &manager, nil
}

func (r *repository) FindByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) (*models.BranchManager, error) {
	var manager models.BranchManager
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND branch_id = ?", userID, branchID).
		First(&manager).Error
	if err != nil {
		return nil, err
	}
	return &manager, nil
}

// DemoteSiblingPrimaries clears the primary flag on every other live manager
// of the branch. Runs inside the caller's transaction so the partial unique
// index never sees two active primaries.
func (r *repository) DemoteSiblingPrimaries(ctx context.Context, branchID uuid.UUID, exceptID uuid.UUID) error {
	q := r.db.WithContext(ctx).
		Model(&models.BranchManager{}).
		Where("branch_id = ? AND is_primary = ?", branchID, true)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	return q.UpdateColumn("is_primary", false).Error
}

func (r *repository) Save(ctx context.Context, manager *models.BranchManager) error {
	return r.db.WithContext(ctx).Save(manager).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID, removedAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.BranchManager{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"is_active":  false,
			"is_primary": false,
			"removed_at": removedAt,
		}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.BranchManager{}, "id = ?", id).Error
}

func (r *repository) ListActive(ctx context.Context, branchID uuid.UUID) ([]models.BranchManager, error) {
	var rows []models.BranchManager
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND is_active = ?", branchID, true).
		Order("is_primary DESC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.BranchManager, error) {
	var rows []models.BranchManager
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
