package models

import (
	"time"

	"github.com/google/uuid"
)

// BusinessBranch is a physical location owned by a business.
type BusinessBranch struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID  `gorm:"column:business_id;type:uuid;not null;index"`
	Name       string     `gorm:"column:name;not null"`
	Address    *string    `gorm:"column:address"`
	City       *string    `gorm:"column:city"`
	Region     *string    `gorm:"column:region"`
	Phone      *string    `gorm:"column:phone"`
	Email      *string    `gorm:"column:email"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	IsMain     bool       `gorm:"column:is_main;not null;default:false"`
	DeletedAt  *time.Time `gorm:"column:deleted_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (BusinessBranch) TableName() string { return "business_branches" }
