package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateBranchManager     OutboxAggregateType = "branch_manager"
	AggregateManagerInvitation OutboxAggregateType = "manager_invitation"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBranchManager,
	AggregateManagerInvitation,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventInvitationCreated   OutboxEventType = "invitation_created"
	EventInvitationResent    OutboxEventType = "invitation_resent"
	EventInvitationAccepted  OutboxEventType = "invitation_accepted"
	EventInvitationDeclined  OutboxEventType = "invitation_declined"
	EventInvitationCancelled OutboxEventType = "invitation_cancelled"
	EventInvitationExpired   OutboxEventType = "invitation_expired"
	EventManagerAssigned     OutboxEventType = "manager_assigned"
	EventManagerActivated    OutboxEventType = "manager_activated"
	EventManagerDeactivated  OutboxEventType = "manager_deactivated"
	EventManagerRemoved      OutboxEventType = "manager_removed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInvitationCreated,
	EventInvitationResent,
	EventInvitationAccepted,
	EventInvitationDeclined,
	EventInvitationCancelled,
	EventInvitationExpired,
	EventManagerAssigned,
	EventManagerActivated,
	EventManagerDeactivated,
	EventManagerRemoved,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
