package invitations

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

// CreateInput captures a new invitation to manage a branch.
type CreateInput struct {
	BranchID    uuid.UUID
	Email       string
	Position    *string
	Message     *string
	Permissions permissions.Set
	Actor       managers.Actor
}

// AcceptInput redeems an invitation token for the authenticated user.
type AcceptInput struct {
	Token string
	User  uuid.UUID
	Actor managers.Actor
}

// DeclineInput turns an invitation down by token. The actor may be absent
// when the recipient follows an email link without signing in.
type DeclineInput struct {
	Token string
	Actor managers.Actor
}

// ActionInput addresses an invitation for an inviter-side transition.
type ActionInput struct {
	InvitationID uuid.UUID
	Actor        managers.Actor
}

// InvitationDTO is the transport shape for an invitation row. The token is
// deliberately omitted from list responses; FindByToken returns it because
// the caller already holds it.
type InvitationDTO struct {
	ID          uuid.UUID              `json:"id"`
	BranchID    uuid.UUID              `json:"branch_id"`
	Email       string                 `json:"email"`
	Position    *string                `json:"position,omitempty"`
	InvitedBy   uuid.UUID              `json:"invited_by"`
	UserID      *uuid.UUID             `json:"user_id,omitempty"`
	Status      enums.InvitationStatus `json:"status"`
	Message     *string                `json:"message,omitempty"`
	Permissions map[string]bool        `json:"permissions"`
	ExpiresAt   time.Time              `json:"expires_at"`
	AcceptedAt  *time.Time             `json:"accepted_at,omitempty"`
	DeclinedAt  *time.Time             `json:"declined_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// AcceptResult pairs the flipped invitation with the manager it produced.
type AcceptResult struct {
	Invitation *InvitationDTO       `json:"invitation"`
	Manager    *managers.ManagerDTO `json:"manager"`
}

// FromModel converts the persistence model into the transport DTO.
func FromModel(inv *models.ManagerInvitation) *InvitationDTO {
	if inv == nil {
		return nil
	}
	perms := make(map[string]bool, len(inv.Permissions))
	for capability, granted := range inv.Permissions {
		perms[string(capability)] = granted
	}
	return &InvitationDTO{
		ID:          inv.ID,
		BranchID:    inv.BranchID,
		Email:       inv.Email,
		Position:    inv.Position,
		InvitedBy:   inv.InvitedBy,
		UserID:      inv.UserID,
		Status:      inv.Status,
		Message:     inv.Message,
		Permissions: perms,
		ExpiresAt:   inv.ExpiresAt,
		AcceptedAt:  inv.AcceptedAt,
		DeclinedAt:  inv.DeclinedAt,
		CreatedAt:   inv.CreatedAt,
	}
}

func snapshot(inv *models.ManagerInvitation) map[string]any {
	return map[string]any{
		"status":     string(inv.Status),
		"email":      inv.Email,
		"expires_at": inv.ExpiresAt,
	}
}
