package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/bizdirect/bizdirect-backend/pkg/db/types"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
)

// ManagerActivityLog is an append-only record of management actions taken
// against a branch. Rows are never updated or deleted.
type ManagerActivityLog struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID    uuid.UUID            `gorm:"column:branch_id;type:uuid;not null;index"`
	ManagerID   *uuid.UUID           `gorm:"column:manager_id;type:uuid;index"`
	ActorID     uuid.UUID            `gorm:"column:actor_id;type:uuid;not null"`
	Action      enums.ActivityAction `gorm:"column:action;type:text;not null"`
	Description string               `gorm:"column:description;type:text;not null"`
	EntityKind  enums.EntityKind     `gorm:"column:entity_kind;type:text;not null"`
	EntityID    uuid.UUID            `gorm:"column:entity_id;type:uuid;not null"`
	OldValues   dbtypes.JSONMap      `gorm:"column:old_values;type:jsonb"`
	NewValues   dbtypes.JSONMap      `gorm:"column:new_values;type:jsonb"`
	IPAddress   *string              `gorm:"column:ip_address"`
	UserAgent   *string              `gorm:"column:user_agent"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (ManagerActivityLog) TableName() string { return "manager_activity_logs" }
