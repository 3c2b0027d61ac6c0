package models

import (
	"time"

	"github.com/google/uuid"
)

// Business represents the canonical tenant model.
type Business struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Description  *string    `gorm:"column:description"`
	Email        *string    `gorm:"column:email"`
	Phone        *string    `gorm:"column:phone"`
	Website      *string    `gorm:"column:website"`
	LogoURL      *string    `gorm:"column:logo_url"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	OwnerID      uuid.UUID  `gorm:"column:owner_id;type:uuid;not null"`
	LastActiveAt *time.Time `gorm:"column:last_active_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
