package enums

// ActivityAction tags an audit trail entry. The column is free-form text so
// consumers can introduce new tags without a migration; these constants cover
// every action the core itself records.
type ActivityAction string

const (
	ActionManagerAssigned     ActivityAction = "manager_assigned"
	ActionManagerActivated    ActivityAction = "manager_activated"
	ActionManagerDeactivated  ActivityAction = "manager_deactivated"
	ActionManagerRemoved      ActivityAction = "manager_removed"
	ActionPrimaryChanged      ActivityAction = "primary_changed"
	ActionPermissionsUpdated  ActivityAction = "permissions_updated"
	ActionInvitationCreated   ActivityAction = "invitation_created"
	ActionInvitationResent    ActivityAction = "invitation_resent"
	ActionInvitationAccepted  ActivityAction = "invitation_accepted"
	ActionInvitationDeclined  ActivityAction = "invitation_declined"
	ActionInvitationCancelled ActivityAction = "invitation_cancelled"
)

// String implements fmt.Stringer.
func (a ActivityAction) String() string {
	return string(a)
}
