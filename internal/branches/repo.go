package branches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
)

// Repository handles business and branch reads. The registry only needs
// lookups; branch CRUD lives with the directory service that owns it.
type Repository interface {
	FindBranch(ctx context.Context, id uuid.UUID) (*models.BusinessBranch, error)
	FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.BusinessBranch, error)
	ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Business, error)
	BranchOwner(ctx context.Context, branchID uuid.UUID) (uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to branch lookups.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindBranch(ctx context.Context, id uuid.UUID) (*models.BusinessBranch, error) {
	var branch models.BusinessBranch
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *repository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.BusinessBranch, error) {
	var rows []models.BusinessBranch
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND deleted_at IS NULL", businessID).
		Order("is_main DESC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Business, error) {
	var rows []models.Business
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_active", ownerID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// BranchOwner resolves the owner of the business a branch belongs to.
func (r *repository) BranchOwner(ctx context.Context, branchID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.BusinessBranch{}).
		Select("businesses.owner_id").
		Joins("JOIN businesses ON businesses.id = business_branches.business_id").
		Where("business_branches.id = ? AND business_branches.deleted_at IS NULL", branchID).
		Scan(&ownerID).Error
	if err != nil {
		return uuid.Nil, err
	}
	if ownerID == uuid.Nil {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return ownerID, nil
}
