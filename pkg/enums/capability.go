package enums

import "fmt"

// Capability is a single manager permission flag. The vocabulary is closed:
// writes reject anything outside this enumeration.
type Capability string

const (
	CapabilityEditBranch       Capability = "edit_branch"
	CapabilityManageProducts   Capability = "manage_products"
	CapabilityRespondToReviews Capability = "respond_to_reviews"
	CapabilityViewLeads        Capability = "view_leads"
	CapabilityRespondToLeads   Capability = "respond_to_leads"
	CapabilityViewAnalytics    Capability = "view_analytics"
	CapabilityAccessFinancials Capability = "access_financials"
	CapabilityManageStaff      Capability = "manage_staff"
)

var validCapabilities = []Capability{
	CapabilityEditBranch,
	CapabilityManageProducts,
	CapabilityRespondToReviews,
	CapabilityViewLeads,
	CapabilityRespondToLeads,
	CapabilityViewAnalytics,
	CapabilityAccessFinancials,
	CapabilityManageStaff,
}

// AllCapabilities returns the full capability vocabulary.
func AllCapabilities() []Capability {
	caps := make([]Capability, len(validCapabilities))
	copy(caps, validCapabilities)
	return caps
}

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
