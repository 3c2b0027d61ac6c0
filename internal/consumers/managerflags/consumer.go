package managerflags

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
)

const consumerName = "manager-flags"

type userStateSyncer interface {
	RecomputeManagerState(ctx context.Context, userID uuid.UUID) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer keeps the users table's cached manager state in sync with the
// branch_managers table. Every manager lifecycle event triggers a recompute
// for the affected user, so the derived flag converges even if an event is
// replayed or delivered out of order.
type Consumer struct {
	users   userStateSyncer
	manager idempotencyChecker
	logg    *logger.Logger
}

// NewConsumer builds a manager flag consumer.
func NewConsumer(users userStateSyncer, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{users: users, manager: manager, logg: logg}, nil
}

var handledEvents = map[enums.OutboxEventType]struct{}{
	enums.EventManagerAssigned:    {},
	enums.EventManagerActivated:   {},
	enums.EventManagerDeactivated: {},
	enums.EventManagerRemoved:     {},
}

// Process recomputes the manager flag for the user named in the event.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": string(eventType),
	})

	if _, ok := handledEvents[eventType]; !ok {
		return nil
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	userID, err := extractUserID(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to extract user id", err)
		_ = c.manager.Delete(ctx, consumerName, eventID)
		return err
	}

	if err := c.users.RecomputeManagerState(ctx, userID); err != nil {
		c.logg.Error(logCtx, "manager state recompute failed", err)
		_ = c.manager.Delete(ctx, consumerName, eventID)
		return err
	}

	c.logg.Info(c.logg.WithUserID(logCtx, userID.String()), "manager state recomputed")
	return nil
}

// extractUserID reads the user_id field all four manager event payloads share.
func extractUserID(data json.RawMessage) (uuid.UUID, error) {
	var payload struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return uuid.Nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("user id missing from payload")
	}
	return payload.UserID, nil
}
