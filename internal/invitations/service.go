package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/internal/activity"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/pkg/config"
	dbpkg "github.com/bizdirect/bizdirect-backend/pkg/db"
	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox/payloads"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

// defaultPosition is stamped on the resulting manager when the inviter
// did not propose a title.
const defaultPosition = "Branch Manager"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// managerAssigner is the slice of the managers service the accept flow needs.
type managerAssigner interface {
	AssignInTx(ctx context.Context, tx *gorm.DB, input managers.AssignInput) (*models.BranchManager, error)
}

// Service drives the manager invitation lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*InvitationDTO, error)
	Accept(ctx context.Context, input AcceptInput) (*AcceptResult, error)
	Decline(ctx context.Context, input DeclineInput) (*InvitationDTO, error)
	Cancel(ctx context.Context, input ActionInput) (*InvitationDTO, error)
	Resend(ctx context.Context, input ActionInput) (*InvitationDTO, error)
	SweepExpired(ctx context.Context, batchSize int) (int, error)
	FindByToken(ctx context.Context, token string) (*InvitationDTO, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]InvitationDTO, error)
}

type service struct {
	repo     Repository
	managers managerAssigner
	tx       txRunner
	outbox   outboxPublisher
	activity activity.Service
	cfg      config.InvitationsConfig
	now      func() time.Time
}

// Params collects the service dependencies.
type Params struct {
	Repo     Repository
	Managers managerAssigner
	Tx       txRunner
	Outbox   outboxPublisher
	Activity activity.Service
	Config   config.InvitationsConfig
	Now      func() time.Time
}

// NewService builds the invitations service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("invitations repository required")
	}
	if p.Managers == nil {
		return nil, fmt.Errorf("managers service required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Activity == nil {
		return nil, fmt.Errorf("activity service required")
	}
	cfg := p.Config
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     p.Repo,
		managers: p.Managers,
		tx:       p.Tx,
		outbox:   p.Outbox,
		activity: p.Activity,
		cfg:      cfg,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*InvitationDTO, error) {
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	token, err := newToken(s.cfg.TokenBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint invitation token")
	}

	perms := input.Permissions
	if perms == nil {
		perms = permissions.Set{}
	}

	position := input.Position
	if position != nil {
		trimmed := strings.TrimSpace(*position)
		if trimmed == "" {
			position = nil
		} else {
			position = &trimmed
		}
	}

	var created *models.ManagerInvitation
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindPendingByBranchEmail(ctx, input.BranchID, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateInvite, "a pending invitation already exists for this email")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending invitations")
		}

		invitation := &models.ManagerInvitation{
			BranchID:    input.BranchID,
			Email:       email,
			Position:    position,
			Token:       token,
			InvitedBy:   input.Actor.UserID,
			Permissions: perms,
			Status:      enums.InvitationStatusPending,
			Message:     input.Message,
			ExpiresAt:   s.now().Add(s.cfg.TTL),
		}
		if err := repo.Create(ctx, invitation); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_manager_invitations_branch_email_pending") {
				return pkgerrors.New(pkgerrors.CodeDuplicateInvite, "a pending invitation already exists for this email")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invitation")
		}

		entry := activity.Entry{
			BranchID:    invitation.BranchID,
			ActorID:     input.Actor.UserID,
			Action:      enums.ActionInvitationCreated,
			Description: "Invited " + invitation.Email + " to manage branch",
			EntityKind:  enums.EntityKindManagerInvitation,
			EntityID:    invitation.ID,
			NewValues:   snapshot(invitation),
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInvitationCreated,
			AggregateType: enums.AggregateManagerInvitation,
			AggregateID:   invitation.ID,
			Version:       1,
			Actor:         actorRef(input.Actor, invitation.BranchID),
			Data: payloads.InvitationCreatedEvent{
				InvitationID: invitation.ID,
				BranchID:     invitation.BranchID,
				Email:        invitation.Email,
				InvitedBy:    invitation.InvitedBy,
				ExpiresAt:    invitation.ExpiresAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue invitation created event")
		}

		created = invitation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

func (s *service) Accept(ctx context.Context, input AcceptInput) (*AcceptResult, error) {
	if input.User == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "accepting user required")
	}
	if input.Actor.UserID == uuid.Nil {
		input.Actor.UserID = input.User
	}

	var result AcceptResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invitation, err := s.loadLiveByToken(ctx, repo, tx, input.Token)
		if err != nil {
			return err
		}

		acceptedAt := s.now()
		won, err := repo.TransitionIfPending(ctx, invitation.ID, enums.InvitationStatusAccepted, map[string]interface{}{
			"accepted_at": acceptedAt,
			"user_id":     input.User,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept invitation")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeInvalidInvitation, "invitation is no longer pending")
		}
		invitation.Status = enums.InvitationStatusAccepted
		invitation.AcceptedAt = &acceptedAt
		acceptedBy := input.User
		invitation.UserID = &acceptedBy

		position := invitation.Position
		if position == nil {
			fallback := defaultPosition
			position = &fallback
		}

		invitedBy := invitation.InvitedBy
		manager, err := s.managers.AssignInTx(ctx, tx, managers.AssignInput{
			BranchID:    invitation.BranchID,
			UserID:      input.User,
			Position:    position,
			Permissions: invitation.Permissions,
			AssignedBy:  &invitedBy,
			Actor:       input.Actor,
		})
		if err != nil {
			return err
		}

		entry := activity.Entry{
			BranchID:    invitation.BranchID,
			ManagerID:   &manager.ID,
			ActorID:     input.Actor.UserID,
			Action:      enums.ActionInvitationAccepted,
			Description: "Accepted invitation to manage branch",
			EntityKind:  enums.EntityKindManagerInvitation,
			EntityID:    invitation.ID,
			NewValues:   snapshot(invitation),
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInvitationAccepted,
			AggregateType: enums.AggregateManagerInvitation,
			AggregateID:   invitation.ID,
			Version:       1,
			Actor:         actorRef(input.Actor, invitation.BranchID),
			Data: payloads.InvitationAcceptedEvent{
				InvitationID: invitation.ID,
				BranchID:     invitation.BranchID,
				ManagerID:    manager.ID,
				UserID:       input.User,
				AcceptedAt:   acceptedAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue invitation accepted event")
		}

		result = AcceptResult{Invitation: FromModel(invitation), Manager: managers.FromModel(manager)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) Decline(ctx context.Context, input DeclineInput) (*InvitationDTO, error) {
	var declined *models.ManagerInvitation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invitation, err := s.loadLiveByToken(ctx, repo, tx, input.Token)
		if err != nil {
			return err
		}

		declinedAt := s.now()
		won, err := repo.TransitionIfPending(ctx, invitation.ID, enums.InvitationStatusDeclined, map[string]interface{}{
			"declined_at": declinedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline invitation")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeInvalidInvitation, "invitation is no longer pending")
		}
		invitation.Status = enums.InvitationStatusDeclined
		invitation.DeclinedAt = &declinedAt

		entry := activity.Entry{
			BranchID:    invitation.BranchID,
			ActorID:     actorOrInviter(input.Actor, invitation),
			Action:      enums.ActionInvitationDeclined,
			Description: "Declined invitation to manage branch",
			EntityKind:  enums.EntityKindManagerInvitation,
			EntityID:    invitation.ID,
			NewValues:   snapshot(invitation),
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInvitationDeclined,
			AggregateType: enums.AggregateManagerInvitation,
			AggregateID:   invitation.ID,
			Version:       1,
			Actor:         actorRef(input.Actor, invitation.BranchID),
			Data: payloads.InvitationDeclinedEvent{
				InvitationID: invitation.ID,
				BranchID:     invitation.BranchID,
				Email:        invitation.Email,
				DeclinedAt:   declinedAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue invitation declined event")
		}

		declined = invitation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(declined), nil
}

// Cancel withdraws a pending invitation from the inviter's side. The row
// lands in the expired state so the token stops working immediately.
func (s *service) Cancel(ctx context.Context, input ActionInput) (*InvitationDTO, error) {
	var cancelled *models.ManagerInvitation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invitation, err := s.loadForUpdate(ctx, repo, input.InvitationID)
		if err != nil {
			return err
		}
		if invitation.Status != enums.InvitationStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "only pending invitations can be cancelled")
		}

		won, err := repo.TransitionIfPending(ctx, invitation.ID, enums.InvitationStatusExpired, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel invitation")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "invitation is no longer pending")
		}
		invitation.Status = enums.InvitationStatusExpired

		entry := activity.Entry{
			BranchID:    invitation.BranchID,
			ActorID:     input.Actor.UserID,
			Action:      enums.ActionInvitationCancelled,
			Description: "Cancelled invitation for " + invitation.Email,
			EntityKind:  enums.EntityKindManagerInvitation,
			EntityID:    invitation.ID,
			NewValues:   snapshot(invitation),
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInvitationCancelled,
			AggregateType: enums.AggregateManagerInvitation,
			AggregateID:   invitation.ID,
			Version:       1,
			Actor:         actorRef(input.Actor, invitation.BranchID),
			Data: payloads.InvitationCancelledEvent{
				InvitationID: invitation.ID,
				BranchID:     invitation.BranchID,
				Email:        invitation.Email,
				CancelledBy:  input.Actor.UserID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue invitation cancelled event")
		}

		cancelled = invitation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(cancelled), nil
}

// Resend rotates the token and extends the expiry, invalidating every link
// sent before.
func (s *service) Resend(ctx context.Context, input ActionInput) (*InvitationDTO, error) {
	var resent *models.ManagerInvitation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invitation, err := s.loadForUpdate(ctx, repo, input.InvitationID)
		if err != nil {
			return err
		}
		if invitation.Status != enums.InvitationStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidInvitation, "only pending invitations can be resent")
		}

		token, err := newToken(s.cfg.TokenBytes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint invitation token")
		}
		invitation.Token = token
		invitation.ExpiresAt = s.now().Add(s.cfg.TTL)
		if err := repo.Save(ctx, invitation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate invitation token")
		}

		entry := activity.Entry{
			BranchID:    invitation.BranchID,
			ActorID:     input.Actor.UserID,
			Action:      enums.ActionInvitationResent,
			Description: "Resent invitation to " + invitation.Email,
			EntityKind:  enums.EntityKindManagerInvitation,
			EntityID:    invitation.ID,
			NewValues:   snapshot(invitation),
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInvitationResent,
			AggregateType: enums.AggregateManagerInvitation,
			AggregateID:   invitation.ID,
			Version:       1,
			Actor:         actorRef(input.Actor, invitation.BranchID),
			Data: payloads.InvitationResentEvent{
				InvitationID: invitation.ID,
				BranchID:     invitation.BranchID,
				Email:        invitation.Email,
				ExpiresAt:    invitation.ExpiresAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue invitation resent event")
		}

		resent = invitation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(resent), nil
}

// SweepExpired flips overdue pending invitations to expired, one batch per
// call. Re-running after a crash is safe: the conditional flip skips rows
// another pass already handled.
func (s *service) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	swept := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		overdue, err := repo.ListOverduePending(ctx, s.now(), batchSize)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue invitations")
		}
		for i := range overdue {
			invitation := &overdue[i]
			won, err := repo.TransitionIfPending(ctx, invitation.ID, enums.InvitationStatusExpired, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire invitation")
			}
			if !won {
				continue
			}
			if err := s.emitExpired(ctx, tx, invitation); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return swept, nil
}

func (s *service) FindByToken(ctx context.Context, token string) (*InvitationDTO, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token required")
	}
	invitation, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInvitation, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	return FromModel(invitation), nil
}

func (s *service) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]InvitationDTO, error) {
	rows, err := s.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invitations")
	}
	out := make([]InvitationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// loadLiveByToken resolves a token to a pending, unexpired invitation. A
// pending row past its expiry is flipped to expired on the spot rather than
// waiting for the sweeper, and the caller gets the same rejection either way.
func (s *service) loadLiveByToken(ctx context.Context, repo Repository, tx *gorm.DB, token string) (*models.ManagerInvitation, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token required")
	}
	invitation, err := repo.FindByTokenForUpdate(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInvitation, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	if invitation.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInvitation, "invitation is no longer pending")
	}
	if !invitation.ExpiresAt.After(s.now()) {
		if _, err := repo.TransitionIfPending(ctx, invitation.ID, enums.InvitationStatusExpired, nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire invitation")
		}
		invitation.Status = enums.InvitationStatusExpired
		if err := s.emitExpired(ctx, tx, invitation); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInvitation, "invitation has expired")
	}
	return invitation, nil
}

func (s *service) emitExpired(ctx context.Context, tx *gorm.DB, invitation *models.ManagerInvitation) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventInvitationExpired,
		AggregateType: enums.AggregateManagerInvitation,
		AggregateID:   invitation.ID,
		Version:       1,
		Data: payloads.InvitationExpiredEvent{
			InvitationID: invitation.ID,
			BranchID:     invitation.BranchID,
			Email:        invitation.Email,
			ExpiredAt:    s.now(),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue invitation expired event")
	}
	return nil
}

func (s *service) loadForUpdate(ctx context.Context, repo Repository, id uuid.UUID) (*models.ManagerInvitation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invitation id required")
	}
	invitation, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	return invitation, nil
}

func actorOrInviter(actor managers.Actor, invitation *models.ManagerInvitation) uuid.UUID {
	if actor.UserID != uuid.Nil {
		return actor.UserID
	}
	return invitation.InvitedBy
}

func actorRef(actor managers.Actor, branchID uuid.UUID) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	if branchID != uuid.Nil {
		ref.BranchID = &branchID
	}
	return ref
}
