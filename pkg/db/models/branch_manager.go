package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

// BranchManager links a user with a branch and captures their grants.
// Rows are soft deleted so removed assignments stay visible to auditing
// while freeing the (branch, user) pair for reassignment.
type BranchManager struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID    uuid.UUID       `gorm:"column:branch_id;type:uuid;not null;index"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Position    *string         `gorm:"column:position"`
	EmployeeID  *string         `gorm:"column:employee_id"`
	Phone       *string         `gorm:"column:phone"`
	Email       *string         `gorm:"column:email"`
	WhatsApp    *string         `gorm:"column:whatsapp"`
	AssignedBy  *uuid.UUID      `gorm:"column:assigned_by;type:uuid"`
	AssignedAt  time.Time       `gorm:"column:assigned_at;not null"`
	IsPrimary   bool            `gorm:"column:is_primary;not null;default:false"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	Permissions permissions.Set `gorm:"column:permissions;type:jsonb;not null"`
	RemovedAt   *time.Time      `gorm:"column:removed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (BranchManager) TableName() string { return "branch_managers" }
