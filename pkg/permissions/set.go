package permissions

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/bizdirect/bizdirect-backend/pkg/enums"
)

// Set maps capabilities to grant flags and is persisted as JSONB on the
// branch manager row. An absent key is a denial; writes reject capabilities
// outside the known vocabulary.
type Set map[enums.Capability]bool

// New returns a Set with the provided capabilities granted.
func New(granted ...enums.Capability) (Set, error) {
	set := make(Set, len(granted))
	for _, capability := range granted {
		if !capability.IsValid() {
			return nil, fmt.Errorf("invalid capability %q", capability)
		}
		set[capability] = true
	}
	return set, nil
}

// Grant enables the capability on the set.
func (s Set) Grant(capability enums.Capability) error {
	if !capability.IsValid() {
		return fmt.Errorf("invalid capability %q", capability)
	}
	s[capability] = true
	return nil
}

// Revoke disables the capability on the set. Revoking stores an explicit
// false rather than deleting the key so the audit trail can show the flip.
func (s Set) Revoke(capability enums.Capability) error {
	if !capability.IsValid() {
		return fmt.Errorf("invalid capability %q", capability)
	}
	s[capability] = false
	return nil
}

// Has reports the stored flag for the capability, defaulting to false.
// Callers gating access must use Evaluate so the active flag is honored.
func (s Set) Has(capability enums.Capability) bool {
	if s == nil {
		return false
	}
	return s[capability]
}

// Evaluate answers whether a manager with this set may exercise the
// capability. Inactive managers are denied for every capability regardless
// of stored flags; unknown or unset capabilities never grant access.
func Evaluate(set Set, active bool, capability enums.Capability) bool {
	if !active {
		return false
	}
	return set.Has(capability)
}

// Clone returns a copy so callers can diff old/new states.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Snapshot flattens the set into a plain map for activity log values.
func (s Set) Snapshot() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[string(k)] = v
	}
	return out
}

// FromStrings validates and converts raw capability keys into a Set.
func FromStrings(raw map[string]bool) (Set, error) {
	set := make(Set, len(raw))
	for key, granted := range raw {
		capability, err := enums.ParseCapability(key)
		if err != nil {
			return nil, err
		}
		set[capability] = granted
	}
	return set, nil
}

// Value marshals the set into JSON for Postgres.
func (s Set) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the set.
func (s *Set) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("permissions: unsupported scan type %T", value)
	}

	result := make(Set)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*s = result
	return nil
}
