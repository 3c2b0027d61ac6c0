package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/internal/activity"
	dbpkg "github.com/bizdirect/bizdirect-backend/pkg/db"
	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox/payloads"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines branch manager registry operations.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*ManagerDTO, error)
	AssignInTx(ctx context.Context, tx *gorm.DB, input AssignInput) (*models.BranchManager, error)
	MakePrimary(ctx context.Context, input ActionInput) (*ManagerDTO, error)
	Activate(ctx context.Context, input ActionInput) (*ManagerDTO, error)
	Deactivate(ctx context.Context, input ActionInput) (*ManagerDTO, error)
	UpdatePermissions(ctx context.Context, input UpdatePermissionsInput) (*ManagerDTO, error)
	Remove(ctx context.Context, input ActionInput) error
	Get(ctx context.Context, id uuid.UUID) (*ManagerDTO, error)
	FindByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) (*ManagerDTO, error)
	ListActive(ctx context.Context, branchID uuid.UUID) ([]ManagerDTO, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]ManagerDTO, error)
	Can(ctx context.Context, userID, branchID uuid.UUID, capability enums.Capability) (bool, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	activity activity.Service
	now      func() time.Time
}

// Params collects the service dependencies.
type Params struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Activity activity.Service
	Now      func() time.Time
}

// NewService builds the branch manager service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("managers repository required")
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
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		outbox:   p.Outbox,
		activity: p.Activity,
		now:      now,
	}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*ManagerDTO, error) {
	var created *models.BranchManager
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		manager, err := s.AssignInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = manager
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

// AssignInTx creates the manager record inside the caller's transaction. The
// invitation accept flow reuses it so the status flip and the assignment
// commit together.
func (s *service) AssignInTx(ctx context.Context, tx *gorm.DB, input AssignInput) (*models.BranchManager, error) {
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	repo := s.repo.WithTx(tx)

	if _, err := repo.FindByUserAndBranch(ctx, input.UserID, input.BranchID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateAssignment, "user already manages this branch")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing assignment")
	}

	if input.IsPrimary {
		if err := repo.DemoteSiblingPrimaries(ctx, input.BranchID, uuid.Nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "demote sibling primaries")
		}
	}

	perms := input.Permissions
	if perms == nil {
		perms = permissions.Set{}
	}

	manager := &models.BranchManager{
		BranchID:    input.BranchID,
		UserID:      input.UserID,
		Position:    input.Position,
		EmployeeID:  input.EmployeeID,
		Phone:       input.Phone,
		Email:       input.Email,
		WhatsApp:    input.WhatsApp,
		AssignedBy:  input.AssignedBy,
		AssignedAt:  s.now(),
		IsPrimary:   input.IsPrimary,
		IsActive:    true,
		Permissions: perms,
	}

	if err := repo.Create(ctx, manager); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_branch_managers_branch_user_live") {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateAssignment, "user already manages this branch")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create branch manager")
	}

	entry := activity.Entry{
		BranchID:    manager.BranchID,
		ManagerID:   &manager.ID,
		ActorID:     input.Actor.UserID,
		Action:      enums.ActionManagerAssigned,
		Description: "Assigned branch manager",
		EntityKind:  enums.EntityKindBranchManager,
		EntityID:    manager.ID,
		NewValues:   snapshot(manager),
		IPAddress:   input.Actor.IPAddress,
		UserAgent:   input.Actor.UserAgent,
	}
	if err := s.activity.Record(ctx, tx, entry); err != nil {
		return nil, err
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventManagerAssigned,
		AggregateType: enums.AggregateBranchManager,
		AggregateID:   manager.ID,
		Version:       1,
		Actor:         buildActor(input.Actor, manager.BranchID),
		Data: payloads.ManagerAssignedEvent{
			ManagerID:  manager.ID,
			BranchID:   manager.BranchID,
			UserID:     manager.UserID,
			AssignedBy: manager.AssignedBy,
			IsPrimary:  manager.IsPrimary,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue manager assigned event")
	}

	return manager, nil
}

func (s *service) MakePrimary(ctx context.Context, input ActionInput) (*ManagerDTO, error) {
	var updated *models.BranchManager
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		manager, err := s.loadForUpdate(ctx, repo, input.ManagerID)
		if err != nil {
			return err
		}
		if !manager.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "inactive manager cannot be primary")
		}
		if manager.IsPrimary {
			updated = manager
			return nil
		}

		before := snapshot(manager)
		if err := repo.DemoteSiblingPrimaries(ctx, manager.BranchID, manager.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "demote sibling primaries")
		}

		manager.IsPrimary = true
		if err := repo.Save(ctx, manager); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote manager")
		}

		oldVals, newVals := activity.Diff(before, snapshot(manager))
		entry := activity.Entry{
			BranchID:    manager.BranchID,
			ManagerID:   &manager.ID,
			ActorID:     input.Actor.UserID,
			Action:      enums.ActionPrimaryChanged,
			Description: "Promoted manager to primary",
			EntityKind:  enums.EntityKindBranchManager,
			EntityID:    manager.ID,
			OldValues:   oldVals,
			NewValues:   newVals,
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		updated = manager
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Activate(ctx context.Context, input ActionInput) (*ManagerDTO, error) {
	return s.toggleActive(ctx, input, true)
}

func (s *service) Deactivate(ctx context.Context, input ActionInput) (*ManagerDTO, error) {
	return s.toggleActive(ctx, input, false)
}

func (s *service) toggleActive(ctx context.Context, input ActionInput, active bool) (*ManagerDTO, error) {
	var updated *models.BranchManager
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		manager, err := s.loadForUpdate(ctx, repo, input.ManagerID)
		if err != nil {
			return err
		}
		if manager.IsActive == active {
			updated = manager
			return nil
		}

		before := snapshot(manager)
		manager.IsActive = active
		if !active {
			removedAt := s.now()
			manager.RemovedAt = &removedAt
		}
		if err := repo.Save(ctx, manager); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update manager state")
		}

		action := enums.ActionManagerDeactivated
		description := "Deactivated branch manager"
		eventType := enums.EventManagerDeactivated
		if active {
			action = enums.ActionManagerActivated
			description = "Reactivated branch manager"
			eventType = enums.EventManagerActivated
		}

		oldVals, newVals := activity.Diff(before, snapshot(manager))
		entry := activity.Entry{
			BranchID:    manager.BranchID,
			ManagerID:   &manager.ID,
			ActorID:     input.Actor.UserID,
			Action:      action,
			Description: description,
			EntityKind:  enums.EntityKindBranchManager,
			EntityID:    manager.ID,
			OldValues:   oldVals,
			NewValues:   newVals,
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		var data any
		if active {
			data = payloads.ManagerActivatedEvent{
				ManagerID: manager.ID,
				BranchID:  manager.BranchID,
				UserID:    manager.UserID,
			}
		} else {
			data = payloads.ManagerDeactivatedEvent{
				ManagerID:     manager.ID,
				BranchID:      manager.BranchID,
				UserID:        manager.UserID,
				DeactivatedAt: *manager.RemovedAt,
			}
		}
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateBranchManager,
			AggregateID:   manager.ID,
			Version:       1,
			Actor:         buildActor(input.Actor, manager.BranchID),
			Data:          data,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue manager state event")
		}

		updated = manager
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) UpdatePermissions(ctx context.Context, input UpdatePermissionsInput) (*ManagerDTO, error) {
	var updated *models.BranchManager
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		manager, err := s.loadForUpdate(ctx, repo, input.ManagerID)
		if err != nil {
			return err
		}

		before := snapshot(manager)

		next := manager.Permissions.Clone()
		if next == nil {
			next = permissions.Set{}
		}
		if input.Replace != nil {
			next = input.Replace.Clone()
		}
		for _, capability := range input.Grant {
			if err := next.Grant(capability); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "grant capability")
			}
		}
		for _, capability := range input.Revoke {
			if err := next.Revoke(capability); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "revoke capability")
			}
		}

		manager.Permissions = next
		if err := repo.Save(ctx, manager); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update manager permissions")
		}

		oldVals, newVals := activity.Diff(before, snapshot(manager))
		entry := activity.Entry{
			BranchID:    manager.BranchID,
			ManagerID:   &manager.ID,
			ActorID:     input.Actor.UserID,
			Action:      enums.ActionPermissionsUpdated,
			Description: "Updated manager permissions",
			EntityKind:  enums.EntityKindBranchManager,
			EntityID:    manager.ID,
			OldValues:   oldVals,
			NewValues:   newVals,
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		updated = manager
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Remove(ctx context.Context, input ActionInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		manager, err := s.loadForUpdate(ctx, repo, input.ManagerID)
		if err != nil {
			return err
		}
		if manager.IsActive && manager.IsPrimary {
			return pkgerrors.New(pkgerrors.CodeConstraintViolation, "active primary manager cannot be removed")
		}

		before := snapshot(manager)
		removedAt := s.now()
		if err := repo.SoftDelete(ctx, manager.ID, removedAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove branch manager")
		}

		manager.IsActive = false
		manager.IsPrimary = false
		manager.RemovedAt = &removedAt
		oldVals, newVals := activity.Diff(before, snapshot(manager))
		entry := activity.Entry{
			BranchID:    manager.BranchID,
			ManagerID:   &manager.ID,
			ActorID:     input.Actor.UserID,
			Action:      enums.ActionManagerRemoved,
			Description: "Removed branch manager",
			EntityKind:  enums.EntityKindBranchManager,
			EntityID:    manager.ID,
			OldValues:   oldVals,
			NewValues:   newVals,
			IPAddress:   input.Actor.IPAddress,
			UserAgent:   input.Actor.UserAgent,
		}
		if err := s.activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventManagerRemoved,
			AggregateType: enums.AggregateBranchManager,
			AggregateID:   manager.ID,
			Version:       1,
			Actor:         buildActor(input.Actor, manager.BranchID),
			Data: payloads.ManagerRemovedEvent{
				ManagerID: manager.ID,
				BranchID:  manager.BranchID,
				UserID:    manager.UserID,
				RemovedAt: removedAt,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ManagerDTO, error) {
	manager, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "manager not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load manager")
	}
	return FromModel(manager), nil
}

func (s *service) FindByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) (*ManagerDTO, error) {
	manager, err := s.repo.FindByUserAndBranch(ctx, userID, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "manager not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load manager")
	}
	return FromModel(manager), nil
}

func (s *service) ListActive(ctx context.Context, branchID uuid.UUID) ([]ManagerDTO, error) {
	rows, err := s.repo.ListActive(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active managers")
	}
	return toDTOs(rows), nil
}

func (s *service) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]ManagerDTO, error) {
	rows, err := s.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branch managers")
	}
	return toDTOs(rows), nil
}

// Can answers a permission question for the (user, branch) pair. Absent
// assignments and inactive managers are denied for every capability.
func (s *service) Can(ctx context.Context, userID, branchID uuid.UUID, capability enums.Capability) (bool, error) {
	manager, err := s.repo.FindByUserAndBranch(ctx, userID, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load manager")
	}
	return permissions.Evaluate(manager.Permissions, manager.IsActive, capability), nil
}

func (s *service) loadForUpdate(ctx context.Context, repo Repository, id uuid.UUID) (*models.BranchManager, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manager id required")
	}
	manager, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "manager not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load manager")
	}
	return manager, nil
}

func toDTOs(rows []models.BranchManager) []ManagerDTO {
	out := make([]ManagerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func buildActor(actor Actor, branchID uuid.UUID) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	if branchID != uuid.Nil {
		ref.BranchID = &branchID
	}
	return ref
}
