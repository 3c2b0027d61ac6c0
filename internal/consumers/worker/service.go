package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/multierr"

	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
)

// Consumer handles one decoded domain event. Each consumer tracks its own
// idempotency, so a redelivered message is safe to hand to all of them again.
type Consumer interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Service fans domain events out from Pub/Sub to the registered consumers.
type Service struct {
	subscription *gcppubsub.Subscriber
	consumers    []Consumer
	logg         *logger.Logger
}

// NewService creates a domain event worker.
func NewService(subscription *gcppubsub.Subscriber, logg *logger.Logger, consumers ...Consumer) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("domain subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if len(consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	return &Service{
		subscription: subscription,
		consumers:    consumers,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes domain events until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}

	eventType, envelope, err := s.decode(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid domain event message")
		return processResult{}
	}

	fields["event_id"] = envelope.EventID
	fields["event_type"] = string(eventType)
	logCtx := s.logg.WithFields(ctx, fields)

	var combined error
	for _, consumer := range s.consumers {
		combined = multierr.Append(combined, consumer.Process(logCtx, eventType, *envelope))
	}
	if combined != nil {
		s.logg.Error(logCtx, "consumer error", combined)
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "domain event handled")
	return processResult{}
}

func (s *Service) decode(msg *gcppubsub.Message) (enums.OutboxEventType, *outbox.PayloadEnvelope, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return "", nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	rawType := strings.TrimSpace(msg.Attributes["event_type"])
	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		return "", nil, fmt.Errorf("event_type: %w", err)
	}

	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if envelope.EventID == "" {
		return "", nil, errors.New("event_id missing")
	}

	return eventType, &envelope, nil
}
