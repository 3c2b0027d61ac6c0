package managerflags

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
)

type fakeSyncer struct {
	recomputed []uuid.UUID
	err        error
}

func (f *fakeSyncer) RecomputeManagerState(ctx context.Context, userID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.recomputed = append(f.recomputed, userID)
	return nil
}

type fakeIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func passThroughIdempotency() fakeIdempotency {
	return fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
}

func mustConsumer(t *testing.T, syncer *fakeSyncer, manager fakeIdempotency) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(syncer, manager, logger.New(logger.Options{
		ServiceName: "manager-flags-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	}))
	if err != nil {
		t.Fatalf("failed to build consumer: %v", err)
	}
	return consumer
}

func buildEnvelope(t *testing.T, eventID uuid.UUID, payload any) outbox.PayloadEnvelope {
	t.Helper()
	bytes, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now(),
		Data:       bytes,
	}
}

func TestManagerFlagsRecomputesOnAssignment(t *testing.T) {
	syncer := &fakeSyncer{}
	consumer := mustConsumer(t, syncer, passThroughIdempotency())

	userID := uuid.New()
	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"manager_id": uuid.NewString(),
		"branch_id":  uuid.NewString(),
		"user_id":    userID.String(),
	})
	if err := consumer.Process(context.Background(), enums.EventManagerAssigned, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(syncer.recomputed) != 1 || syncer.recomputed[0] != userID {
		t.Fatalf("expected recompute for %s, got %v", userID, syncer.recomputed)
	}
}

func TestManagerFlagsSkipsUnrelatedEvents(t *testing.T) {
	syncer := &fakeSyncer{}
	consumer := mustConsumer(t, syncer, passThroughIdempotency())

	envelope := buildEnvelope(t, uuid.New(), map[string]any{"user_id": uuid.NewString()})
	if err := consumer.Process(context.Background(), enums.EventInvitationCreated, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(syncer.recomputed) != 0 {
		t.Fatalf("expected no recompute for invitation events")
	}
}

func TestManagerFlagsIsIdempotent(t *testing.T) {
	syncer := &fakeSyncer{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return true, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, syncer, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{"user_id": uuid.NewString()})
	if err := consumer.Process(context.Background(), enums.EventManagerRemoved, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(syncer.recomputed) != 0 {
		t.Fatalf("expected no recompute when already processed")
	}
}

func TestManagerFlagsDeletesKeyOnFailure(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("db down")}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer := mustConsumer(t, syncer, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{"user_id": uuid.NewString()})
	if err := consumer.Process(context.Background(), enums.EventManagerDeactivated, envelope); err == nil {
		t.Fatalf("expected error when recompute fails")
	}
	if !deleted {
		t.Fatalf("expected idempotency key deletion on failure")
	}
}

func TestManagerFlagsRejectsPayloadWithoutUser(t *testing.T) {
	syncer := &fakeSyncer{}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer := mustConsumer(t, syncer, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{"branch_id": uuid.NewString()})
	if err := consumer.Process(context.Background(), enums.EventManagerAssigned, envelope); err == nil {
		t.Fatalf("expected error for payload without user id")
	}
	if !deleted {
		t.Fatalf("expected idempotency key deletion on payload error")
	}
}
