package enums

import "fmt"

// EntityKind identifies which table an activity log entry points at. It is
// the typed half of the (kind, id) reference the audit trail stores instead
// of a language-level polymorphic association.
type EntityKind string

const (
	EntityKindBranchManager     EntityKind = "branch_manager"
	EntityKindManagerInvitation EntityKind = "manager_invitation"
	EntityKindBusinessBranch    EntityKind = "business_branch"
)

var validEntityKinds = []EntityKind{
	EntityKindBranchManager,
	EntityKindManagerInvitation,
	EntityKindBusinessBranch,
}

// String implements fmt.Stringer.
func (e EntityKind) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EntityKind.
func (e EntityKind) IsValid() bool {
	for _, candidate := range validEntityKinds {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEntityKind converts raw input into an EntityKind.
func ParseEntityKind(value string) (EntityKind, error) {
	for _, candidate := range validEntityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity kind %q", value)
}
