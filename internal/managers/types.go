package managers

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

// Actor carries the identity and provenance of the user performing a mutation.
type Actor struct {
	UserID    uuid.UUID
	Role      enums.ActorRole
	IPAddress *string
	UserAgent *string
}

// AssignInput captures a new manager assignment.
type AssignInput struct {
	BranchID    uuid.UUID
	UserID      uuid.UUID
	Position    *string
	EmployeeID  *string
	Phone       *string
	Email       *string
	WhatsApp    *string
	IsPrimary   bool
	Permissions permissions.Set
	AssignedBy  *uuid.UUID
	Actor       Actor
}

// UpdatePermissionsInput mutates a manager's capability set. When Replace is
// non-nil it supersedes Grant/Revoke; otherwise the deltas are applied to the
// current set.
type UpdatePermissionsInput struct {
	ManagerID uuid.UUID
	Replace   permissions.Set
	Grant     []enums.Capability
	Revoke    []enums.Capability
	Actor     Actor
}

// ActionInput addresses a single manager for a state transition.
type ActionInput struct {
	ManagerID uuid.UUID
	Actor     Actor
}

// ManagerDTO is the transport shape for a branch manager row.
type ManagerDTO struct {
	ID          uuid.UUID       `json:"id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Position    *string         `json:"position,omitempty"`
	EmployeeID  *string         `json:"employee_id,omitempty"`
	Phone       *string         `json:"phone,omitempty"`
	Email       *string         `json:"email,omitempty"`
	WhatsApp    *string         `json:"whatsapp,omitempty"`
	AssignedBy  *uuid.UUID      `json:"assigned_by,omitempty"`
	AssignedAt  time.Time       `json:"assigned_at"`
	IsPrimary   bool            `json:"is_primary"`
	IsActive    bool            `json:"is_active"`
	Permissions map[string]bool `json:"permissions"`
	RemovedAt   *time.Time      `json:"removed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FromModel converts the persistence model into the transport DTO.
func FromModel(m *models.BranchManager) *ManagerDTO {
	if m == nil {
		return nil
	}
	perms := make(map[string]bool, len(m.Permissions))
	for capability, granted := range m.Permissions {
		perms[string(capability)] = granted
	}
	return &ManagerDTO{
		ID:          m.ID,
		BranchID:    m.BranchID,
		UserID:      m.UserID,
		Position:    m.Position,
		EmployeeID:  m.EmployeeID,
		Phone:       m.Phone,
		Email:       m.Email,
		WhatsApp:    m.WhatsApp,
		AssignedBy:  m.AssignedBy,
		AssignedAt:  m.AssignedAt,
		IsPrimary:   m.IsPrimary,
		IsActive:    m.IsActive,
		Permissions: perms,
		RemovedAt:   m.RemovedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// snapshot flattens the mutable manager fields for activity log diffs.
func snapshot(m *models.BranchManager) map[string]any {
	if m == nil {
		return nil
	}
	return map[string]any{
		"is_active":   m.IsActive,
		"is_primary":  m.IsPrimary,
		"position":    deref(m.Position),
		"employee_id": deref(m.EmployeeID),
		"permissions": m.Permissions.Snapshot(),
		"removed_at":  m.RemovedAt,
	}
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
