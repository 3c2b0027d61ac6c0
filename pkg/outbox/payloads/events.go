package payloads

import (
	"time"

	"github.com/google/uuid"
)

// InvitationCreatedEvent signals a new pending manager invitation.
type InvitationCreatedEvent struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	BranchID     uuid.UUID `json:"branch_id"`
	Email        string    `json:"email"`
	InvitedBy    uuid.UUID `json:"invited_by"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// InvitationResentEvent is emitted when an invitation token is rotated.
type InvitationResentEvent struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	BranchID     uuid.UUID `json:"branch_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// InvitationAcceptedEvent carries the manager created by an acceptance.
type InvitationAcceptedEvent struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	BranchID     uuid.UUID `json:"branch_id"`
	ManagerID    uuid.UUID `json:"manager_id"`
	UserID       uuid.UUID `json:"user_id"`
	AcceptedAt   time.Time `json:"accepted_at"`
}

// InvitationDeclinedEvent is emitted when the recipient turns an offer down.
type InvitationDeclinedEvent struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	BranchID     uuid.UUID `json:"branch_id"`
	Email        string    `json:"email"`
	DeclinedAt   time.Time `json:"declined_at"`
}

// InvitationCancelledEvent is emitted when the inviter withdraws an offer.
type InvitationCancelledEvent struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	BranchID     uuid.UUID `json:"branch_id"`
	Email        string    `json:"email"`
	CancelledBy  uuid.UUID `json:"cancelled_by"`
}

// InvitationExpiredEvent describes the payload when the sweeper times an offer out.
type InvitationExpiredEvent struct {
	InvitationID uuid.UUID `json:"invitationId"`
	BranchID     uuid.UUID `json:"branchId"`
	Email        string    `json:"email"`
	ExpiredAt    time.Time `json:"expiredAt"`
}

// ManagerAssignedEvent signals a new branch manager record.
type ManagerAssignedEvent struct {
	ManagerID  uuid.UUID  `json:"manager_id"`
	BranchID   uuid.UUID  `json:"branch_id"`
	UserID     uuid.UUID  `json:"user_id"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	IsPrimary  bool       `json:"is_primary"`
}

// ManagerActivatedEvent is emitted when a deactivated manager is restored.
type ManagerActivatedEvent struct {
	ManagerID uuid.UUID `json:"manager_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// ManagerDeactivatedEvent is emitted when a manager is suspended.
type ManagerDeactivatedEvent struct {
	ManagerID     uuid.UUID `json:"manager_id"`
	BranchID      uuid.UUID `json:"branch_id"`
	UserID        uuid.UUID `json:"user_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

// ManagerRemovedEvent is emitted when an assignment is soft deleted.
type ManagerRemovedEvent struct {
	ManagerID uuid.UUID `json:"manager_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	UserID    uuid.UUID `json:"user_id"`
	RemovedAt time.Time `json:"removed_at"`
}
