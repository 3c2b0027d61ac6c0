package models

import (
	"time"

	dbtypes "github.com/bizdirect/bizdirect-backend/pkg/db/types"
	"github.com/google/uuid"
)

// User represents the canonical identity entity.
type User struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash     string            `gorm:"column:password_hash;not null"`
	FirstName        string            `gorm:"column:first_name;not null"`
	LastName         string            `gorm:"column:last_name;not null"`
	Phone            *string           `gorm:"column:phone"`
	IsActive         bool              `gorm:"column:is_active;not null;default:true"`
	IsBranchManager  bool              `gorm:"column:is_branch_manager;not null;default:false"`
	ManagedBranchIDs dbtypes.UUIDArray `gorm:"type:uuid[];column:managed_branch_ids;not null;default:ARRAY[]::uuid[]"`
	LastLoginAt      *time.Time        `gorm:"column:last_login_at"`
	SystemRole       *string           `gorm:"column:system_role"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
