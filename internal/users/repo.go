package users

import (
	"context"
	"time"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	dbtypes "github.com/bizdirect/bizdirect-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// ActiveBranchIDs returns the branches where the user currently holds an
// active manager assignment.
func (r *Repository) ActiveBranchIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.BranchManager{}).
		Where("user_id = ? AND is_active = ? AND deleted_at IS NULL", userID, true).
		Order("branch_id").
		Pluck("branch_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SyncManagerState overwrites the cached manager flag and branch list for the user.
func (r *Repository) SyncManagerState(ctx context.Context, userID uuid.UUID, branchIDs []uuid.UUID) error {
	if branchIDs == nil {
		branchIDs = []uuid.UUID{}
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]any{
			"is_branch_manager":  len(branchIDs) > 0,
			"managed_branch_ids": dbtypes.UUIDArray(branchIDs),
		}).Error
}

// RecomputeManagerState derives is_branch_manager from the user's live
// assignments and persists the result. Callers run it after any mutation
// that can change manager status.
func (r *Repository) RecomputeManagerState(ctx context.Context, userID uuid.UUID) error {
	ids, err := r.ActiveBranchIDs(ctx, userID)
	if err != nil {
		return err
	}
	return r.SyncManagerState(ctx, userID, ids)
}
