package invitations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
)

// Repository exposes manager invitation persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invitation *models.ManagerInvitation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ManagerInvitation, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ManagerInvitation, error)
	FindByToken(ctx context.Context, token string) (*models.ManagerInvitation, error)
	FindByTokenForUpdate(ctx context.Context, token string) (*models.ManagerInvitation, error)
	FindPendingByBranchEmail(ctx context.Context, branchID uuid.UUID, email string) (*models.ManagerInvitation, error)
	Save(ctx context.Context, invitation *models.ManagerInvitation) error
	TransitionIfPending(ctx context.Context, id uuid.UUID, next enums.InvitationStatus, updates map[string]interface{}) (bool, error)
	ListOverduePending(ctx context.Context, cutoff time.Time, limit int) ([]models.ManagerInvitation, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.ManagerInvitation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invitations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invitation *models.ManagerInvitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ManagerInvitation, error) {
	var invitation models.ManagerInvitation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ManagerInvitation, error) {
	var invitation models.ManagerInvitation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*models.ManagerInvitation, error) {
	var invitation models.ManagerInvitation
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) FindByTokenForUpdate(ctx context.Context, token string) (*models.ManagerInvitation, error) {
	var invitation models.ManagerInvitation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) FindPendingByBranchEmail(ctx context.Context, branchID uuid.UUID, email string) (*models.ManagerInvitation, error) {
	var invitation models.ManagerInvitation
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND email = ? AND status = ?", branchID, email, enums.InvitationStatusPending).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) Save(ctx context.Context, invitation *models.ManagerInvitation) error {
	return r.db.WithContext(ctx).Save(invitation).Error
}

// TransitionIfPending flips the status only when the row is still pending,
// so concurrent accept/decline/sweep calls cannot double-apply. The boolean
// reports whether this caller won the flip.
func (r *repository) TransitionIfPending(ctx context.Context, id uuid.UUID, next enums.InvitationStatus, updates map[string]interface{}) (bool, error) {
	cols := map[string]interface{}{"status": next}
	for k, v := range updates {
		cols[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.ManagerInvitation{}).
		Where("id = ? AND status = ?", id, enums.InvitationStatusPending).
		UpdateColumns(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListOverduePending(ctx context.Context, cutoff time.Time, limit int) ([]models.ManagerInvitation, error) {
	var rows []models.ManagerInvitation
	q := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.InvitationStatusPending, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.ManagerInvitation, error) {
	var rows []models.ManagerInvitation
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
