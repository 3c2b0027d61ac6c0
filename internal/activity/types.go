package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/pagination"
)

// Entry captures one management action before it is persisted.
type Entry struct {
	BranchID    uuid.UUID
	ManagerID   *uuid.UUID
	ActorID     uuid.UUID
	Action      enums.ActivityAction
	Description string
	EntityKind  enums.EntityKind
	EntityID    uuid.UUID
	OldValues   map[string]any
	NewValues   map[string]any
	IPAddress   *string
	UserAgent   *string
}

// Filter narrows activity listings.
type Filter struct {
	BranchID  uuid.UUID
	ManagerID *uuid.UUID
	Action    *enums.ActivityAction
	Since     *time.Time
	Page      pagination.Params
}

// LogDTO is the transport shape for a single activity row.
type LogDTO struct {
	ID          uuid.UUID            `json:"id"`
	BranchID    uuid.UUID            `json:"branch_id"`
	ManagerID   *uuid.UUID           `json:"manager_id,omitempty"`
	ActorID     uuid.UUID            `json:"actor_id"`
	Action      enums.ActivityAction `json:"action"`
	Description string               `json:"description"`
	EntityKind  enums.EntityKind     `json:"entity_kind"`
	EntityID    uuid.UUID            `json:"entity_id"`
	OldValues   map[string]any       `json:"old_values,omitempty"`
	NewValues   map[string]any       `json:"new_values,omitempty"`
	IPAddress   *string              `json:"ip_address,omitempty"`
	UserAgent   *string              `json:"user_agent,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Page is a cursor-paginated slice of activity rows.
type Page struct {
	Items      []LogDTO `json:"items"`
	NextCursor string   `json:"next_cursor,omitempty"`
}
