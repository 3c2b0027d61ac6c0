package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox/payloads"
)

const teamNotificationConsumer = "team-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns invitation and manager lifecycle events into in-app
// notification rows.
type Consumer struct {
	repo        repository
	idempotency idempotencyChecker
	logg        *logger.Logger
}

// NewConsumer builds a team notification consumer.
func NewConsumer(repo repository, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:        repo,
		idempotency: manager,
		logg:        logg,
	}, nil
}

var handledEvents = map[enums.OutboxEventType]struct{}{
	enums.EventInvitationCreated:  {},
	enums.EventInvitationResent:   {},
	enums.EventInvitationAccepted: {},
	enums.EventInvitationDeclined: {},
	enums.EventManagerAssigned:    {},
	enums.EventManagerActivated:   {},
	enums.EventManagerDeactivated: {},
	enums.EventManagerRemoved:     {},
}

// Process writes the notification row for a supported event. Unsupported
// events are acked by doing nothing.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": string(eventType),
	})

	if _, ok := handledEvents[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by notification consumer")
		return nil
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, teamNotificationConsumer, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	if err := c.handle(ctx, eventType, &envelope); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, teamNotificationConsumer, eventID)
		return err
	}

	c.logg.Info(logCtx, "notification written")
	return nil
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, envelope *outbox.PayloadEnvelope) error {
	switch eventType {
	case enums.EventInvitationCreated:
		var p payloads.InvitationCreatedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.InvitedBy, &p.BranchID, enums.NotificationTypeInvitation,
			"Invitation sent",
			fmt.Sprintf("An invitation to manage this branch was sent to %s.", p.Email),
			branchTeamLink(p.BranchID))
	case enums.EventInvitationResent:
		var p payloads.InvitationResentEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		actorID, ok := envelopeActor(envelope)
		if !ok {
			return nil
		}
		return c.notify(ctx, actorID, &p.BranchID, enums.NotificationTypeInvitation,
			"Invitation resent",
			fmt.Sprintf("The invitation for %s was resent with a fresh link.", p.Email),
			branchTeamLink(p.BranchID))
	case enums.EventInvitationAccepted:
		var p payloads.InvitationAcceptedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.UserID, &p.BranchID, enums.NotificationTypeTeam,
			"You joined a branch team",
			"Your manager assignment is active. Review your permissions on the branch page.",
			branchTeamLink(p.BranchID))
	case enums.EventInvitationDeclined:
		var p payloads.InvitationDeclinedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		actorID, ok := envelopeActor(envelope)
		if !ok {
			return nil
		}
		return c.notify(ctx, actorID, &p.BranchID, enums.NotificationTypeInvitation,
			"Invitation declined",
			fmt.Sprintf("%s declined the invitation to manage this branch.", p.Email),
			branchTeamLink(p.BranchID))
	case enums.EventManagerAssigned:
		var p payloads.ManagerAssignedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.UserID, &p.BranchID, enums.NotificationTypeTeam,
			"Branch manager access granted",
			"You have been assigned as a manager of this branch.",
			branchTeamLink(p.BranchID))
	case enums.EventManagerActivated:
		var p payloads.ManagerActivatedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.UserID, &p.BranchID, enums.NotificationTypeTeam,
			"Manager access restored",
			"Your manager access for this branch has been reactivated.",
			branchTeamLink(p.BranchID))
	case enums.EventManagerDeactivated:
		var p payloads.ManagerDeactivatedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.UserID, &p.BranchID, enums.NotificationTypeSecurity,
			"Manager access suspended",
			"Your manager access for this branch has been deactivated.",
			branchTeamLink(p.BranchID))
	case enums.EventManagerRemoved:
		var p payloads.ManagerRemovedEvent
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.UserID, &p.BranchID, enums.NotificationTypeSecurity,
			"Manager access removed",
			"Your manager assignment for this branch has been removed.",
			branchTeamLink(p.BranchID))
	default:
		return nil
	}
}

func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID, kind enums.NotificationType, title, message, link string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("notification recipient missing")
	}
	notification := &models.Notification{
		UserID:   userID,
		BranchID: branchID,
		Type:     kind,
		Title:    title,
		Message:  message,
		Link:     stringPtr(link),
	}
	return c.repo.Create(ctx, notification)
}

// envelopeActor picks the acting user as the recipient for inviter-side
// notifications. Sweeper-generated events carry no actor and produce none.
func envelopeActor(envelope *outbox.PayloadEnvelope) (uuid.UUID, bool) {
	if envelope.Actor == nil || envelope.Actor.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return envelope.Actor.UserID, true
}

func branchTeamLink(branchID uuid.UUID) string {
	return fmt.Sprintf("/branches/%s/team", branchID)
}

func stringPtr(value string) *string {
	return &value
}
