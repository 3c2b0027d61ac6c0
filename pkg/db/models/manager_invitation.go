package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

// ManagerInvitation is the pending offer to manage a branch. The token is
// the only credential required to accept, so it is unique and rotated on
// every resend.
type ManagerInvitation struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID    uuid.UUID              `gorm:"column:branch_id;type:uuid;not null;index"`
	Email       string                 `gorm:"column:email;type:text;not null"`
	Position    *string                `gorm:"column:position"`
	Token       string                 `gorm:"column:token;type:text;not null;uniqueIndex"`
	InvitedBy   uuid.UUID              `gorm:"column:invited_by;type:uuid;not null"`
	UserID      *uuid.UUID             `gorm:"column:user_id;type:uuid"`
	Permissions permissions.Set        `gorm:"column:permissions;type:jsonb;not null"`
	Status      enums.InvitationStatus `gorm:"column:status;type:invitation_status;not null;default:'pending'"`
	Message     *string                `gorm:"column:message"`
	ExpiresAt   time.Time              `gorm:"column:expires_at;not null"`
	AcceptedAt  *time.Time             `gorm:"column:accepted_at"`
	DeclinedAt  *time.Time             `gorm:"column:declined_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (ManagerInvitation) TableName() string { return "manager_invitations" }
