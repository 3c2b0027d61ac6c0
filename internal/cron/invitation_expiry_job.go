package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/pkg/logger"
)

const invitationSweepBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type invitationSweeper interface {
	SweepExpired(ctx context.Context, batchSize int) (int, error)
}

// InvitationExpiryJobParams configures the invitation sweep.
type InvitationExpiryJobParams struct {
	Logger      *logger.Logger
	Invitations invitationSweeper
	BatchSize   int
}

// NewInvitationExpiryJob constructs the cron job that times out overdue
// pending invitations.
func NewInvitationExpiryJob(params InvitationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invitations == nil {
		return nil, fmt.Errorf("invitations service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = invitationSweepBatchSize
	}
	return &invitationExpiryJob{
		logg:        params.Logger,
		invitations: params.Invitations,
		batchSize:   batchSize,
	}, nil
}

type invitationExpiryJob struct {
	logg        *logger.Logger
	invitations invitationSweeper
	batchSize   int
}

func (j *invitationExpiryJob) Name() string { return "invitation-expiry" }

// Run sweeps in batches until a pass comes back empty, so a backlog larger
// than one batch still drains in a single cycle.
func (j *invitationExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		swept, err := j.invitations.SweepExpired(ctx, j.batchSize)
		if err != nil {
			return fmt.Errorf("invitation expiry sweep: %w", err)
		}
		total += swept
		if swept < j.batchSize {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"invitations_expired": total,
	})
	j.logg.Info(logCtx, "invitation expiry sweep complete")
	return nil
}
