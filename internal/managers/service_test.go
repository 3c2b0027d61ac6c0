package managers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/internal/activity"
	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/outbox"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

type stubManagerRepo struct {
	managers map[uuid.UUID]*models.BranchManager

	createErr error
	demoted   []uuid.UUID
	deleted   []uuid.UUID
}

func newStubManagerRepo() *stubManagerRepo {
	return &stubManagerRepo{managers: make(map[uuid.UUID]*models.BranchManager)}
}

func (r *stubManagerRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubManagerRepo) Create(ctx context.Context, manager *models.BranchManager) error {
	if r.createErr != nil {
		return r.createErr
	}
	if manager.ID == uuid.Nil {
		manager.ID = uuid.New()
	}
	clone := *manager
	r.managers[manager.ID] = &clone
	return nil
}

func (r *stubManagerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.BranchManager, error) {
	m, ok := r.managers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *stubManagerRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.BranchManager, error) {
	return r.FindByID(ctx, id)
}

func (r *stubManagerRepo) FindByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) (*models.BranchManager, error) {
	for _, m := range r.managers {
		if m.UserID == userID && m.BranchID == branchID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubManagerRepo) DemoteSiblingPrimaries(ctx context.Context, branchID uuid.UUID, exceptID uuid.UUID) error {
	r.demoted = append(r.demoted, branchID)
	for _, m := range r.managers {
		if m.BranchID == branchID && m.ID != exceptID {
			m.IsPrimary = false
		}
	}
	return nil
}

func (r *stubManagerRepo) Save(ctx context.Context, manager *models.BranchManager) error {
	clone := *manager
	r.managers[manager.ID] = &clone
	return nil
}

func (r *stubManagerRepo) SoftDelete(ctx context.Context, id uuid.UUID, removedAt time.Time) error {
	m, ok := r.managers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.IsActive = false
	m.IsPrimary = false
	m.RemovedAt = &removedAt
	r.deleted = append(r.deleted, id)
	delete(r.managers, id)
	return nil
}

func (r *stubManagerRepo) ListActive(ctx context.Context, branchID uuid.UUID) ([]models.BranchManager, error) {
	var out []models.BranchManager
	for _, m := range r.managers {
		if m.BranchID == branchID && m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubManagerRepo) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.BranchManager, error) {
	var out []models.BranchManager
	for _, m := range r.managers {
		if m.BranchID == branchID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubActivity struct {
	entries []activity.Entry
}

func (s *stubActivity) Record(ctx context.Context, tx *gorm.DB, entry activity.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubActivity) List(ctx context.Context, filter activity.Filter) (*activity.Page, error) {
	return &activity.Page{}, nil
}

type managerFixture struct {
	svc      Service
	repo     *stubManagerRepo
	outbox   *stubOutbox
	activity *stubActivity
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	repo := newStubManagerRepo()
	ob := &stubOutbox{}
	act := &stubActivity{}
	svc, err := NewService(Params{
		Repo:     repo,
		Tx:       stubTxRunner{},
		Outbox:   ob,
		Activity: act,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &managerFixture{svc: svc, repo: repo, outbox: ob, activity: act}
}

func mustPerms(t *testing.T, caps ...enums.Capability) permissions.Set {
	t.Helper()
	set, err := permissions.New(caps...)
	if err != nil {
		t.Fatalf("permissions.New: %v", err)
	}
	return set
}

func testActor() Actor {
	ip := "203.0.113.10"
	ua := "bizdirect-admin/1.4"
	return Actor{UserID: uuid.New(), Role: enums.ActorRoleOwner, IPAddress: &ip, UserAgent: &ua}
}

func TestAssignCreatesActiveManager(t *testing.T) {
	f := newManagerFixture(t)
	branchID := uuid.New()
	userID := uuid.New()

	perms := mustPerms(t, enums.CapabilityEditBranch, enums.CapabilityViewLeads)
	dto, err := f.svc.Assign(context.Background(), AssignInput{
		BranchID:    branchID,
		UserID:      userID,
		Permissions: perms,
		Actor:       testActor(),
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !dto.IsActive {
		t.Fatal("expected new manager to be active")
	}
	if dto.AssignedAt.IsZero() {
		t.Fatal("expected assigned_at to be stamped")
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventManagerAssigned {
		t.Fatalf("expected manager.assigned event, got %+v", f.outbox.events)
	}
	if len(f.activity.entries) != 1 {
		t.Fatalf("expected one activity entry, got %d", len(f.activity.entries))
	}
	entry := f.activity.entries[0]
	if entry.Action != enums.ActionManagerAssigned {
		t.Fatalf("unexpected action %q", entry.Action)
	}
	if entry.IPAddress == nil || *entry.IPAddress != "203.0.113.10" {
		t.Fatal("expected actor IP to flow into the activity entry")
	}
}

func TestAssignRejectsDuplicatePair(t *testing.T) {
	f := newManagerFixture(t)
	branchID := uuid.New()
	userID := uuid.New()

	if _, err := f.svc.Assign(context.Background(), AssignInput{
		BranchID: branchID,
		UserID:   userID,
		Actor:    testActor(),
	}); err != nil {
		t.Fatalf("first Assign: %v", err)
	}

	_, err := f.svc.Assign(context.Background(), AssignInput{
		BranchID: branchID,
		UserID:   userID,
		Actor:    testActor(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDuplicateAssignment) {
		t.Fatalf("expected duplicate assignment error, got %v", err)
	}
}

func TestAssignPrimaryDemotesSiblings(t *testing.T) {
	f := newManagerFixture(t)
	branchID := uuid.New()

	first, err := f.svc.Assign(context.Background(), AssignInput{
		BranchID:  branchID,
		UserID:    uuid.New(),
		IsPrimary: true,
		Actor:     testActor(),
	})
	if err != nil {
		t.Fatalf("first Assign: %v", err)
	}

	second, err := f.svc.Assign(context.Background(), AssignInput{
		BranchID:  branchID,
		UserID:    uuid.New(),
		IsPrimary: true,
		Actor:     testActor(),
	})
	if err != nil {
		t.Fatalf("second Assign: %v", err)
	}
	if !second.IsPrimary {
		t.Fatal("expected second assignment to hold primary")
	}

	reloaded, err := f.svc.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.IsPrimary {
		t.Fatal("expected first primary to be demoted")
	}
}

func TestMakePrimaryPromotesAndDemotes(t *testing.T) {
	f := newManagerFixture(t)
	branchID := uuid.New()
	actor := testActor()

	primary, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: branchID, UserID: uuid.New(), IsPrimary: true, Actor: actor,
	})
	secondary, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: branchID, UserID: uuid.New(), Actor: actor,
	})

	promoted, err := f.svc.MakePrimary(context.Background(), ActionInput{ManagerID: secondary.ID, Actor: actor})
	if err != nil {
		t.Fatalf("MakePrimary: %v", err)
	}
	if !promoted.IsPrimary {
		t.Fatal("expected promotion")
	}

	former, _ := f.svc.Get(context.Background(), primary.ID)
	if former.IsPrimary {
		t.Fatal("expected former primary to be demoted")
	}

	last := f.activity.entries[len(f.activity.entries)-1]
	if last.Action != enums.ActionPrimaryChanged {
		t.Fatalf("unexpected action %q", last.Action)
	}
	if last.OldValues["is_primary"] != false || last.NewValues["is_primary"] != true {
		t.Fatalf("expected is_primary diff, got old=%v new=%v", last.OldValues, last.NewValues)
	}
}

func TestMakePrimaryRejectsInactiveManager(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: uuid.New(), UserID: uuid.New(), Actor: actor,
	})
	if _, err := f.svc.Deactivate(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	_, err := f.svc.MakePrimary(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestDeactivateStampsRemovedAt(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: uuid.New(), UserID: uuid.New(), Actor: actor,
	})

	updated, err := f.svc.Deactivate(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor})
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if updated.IsActive {
		t.Fatal("expected manager to be inactive")
	}
	if updated.RemovedAt == nil {
		t.Fatal("expected removed_at to be stamped")
	}

	restored, err := f.svc.Activate(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !restored.IsActive {
		t.Fatal("expected manager to be active again")
	}
	if restored.RemovedAt == nil || !restored.RemovedAt.Equal(*updated.RemovedAt) {
		t.Fatal("expected reactivation to keep the historical removed_at stamp")
	}

	var types []enums.OutboxEventType
	for _, e := range f.outbox.events {
		types = append(types, e.EventType)
	}
	want := []enums.OutboxEventType{enums.EventManagerAssigned, enums.EventManagerDeactivated, enums.EventManagerActivated}
	if len(types) != len(want) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d: got %q want %q", i, types[i], want[i])
		}
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: uuid.New(), UserID: uuid.New(), Actor: actor,
	})

	if _, err := f.svc.Deactivate(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	events := len(f.outbox.events)
	if _, err := f.svc.Deactivate(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor}); err != nil {
		t.Fatalf("repeat Deactivate: %v", err)
	}
	if len(f.outbox.events) != events {
		t.Fatal("expected no event for a no-op deactivate")
	}
}

func TestUpdatePermissionsAppliesDeltas(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID:    uuid.New(),
		UserID:      uuid.New(),
		Permissions: mustPerms(t, enums.CapabilityEditBranch),
		Actor:       actor,
	})

	updated, err := f.svc.UpdatePermissions(context.Background(), UpdatePermissionsInput{
		ManagerID: dto.ID,
		Grant:     []enums.Capability{enums.CapabilityViewAnalytics},
		Revoke:    []enums.Capability{enums.CapabilityEditBranch},
		Actor:     actor,
	})
	if err != nil {
		t.Fatalf("UpdatePermissions: %v", err)
	}
	if !updated.Permissions["view_analytics"] {
		t.Fatal("expected view_analytics granted")
	}
	if updated.Permissions["edit_branch"] {
		t.Fatal("expected edit_branch revoked")
	}

	last := f.activity.entries[len(f.activity.entries)-1]
	if last.Action != enums.ActionPermissionsUpdated {
		t.Fatalf("unexpected action %q", last.Action)
	}
	if last.OldValues["permissions"] == nil || last.NewValues["permissions"] == nil {
		t.Fatal("expected permissions snapshots in the diff")
	}
}

func TestUpdatePermissionsRejectsUnknownCapability(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: uuid.New(), UserID: uuid.New(), Actor: actor,
	})

	_, err := f.svc.UpdatePermissions(context.Background(), UpdatePermissionsInput{
		ManagerID: dto.ID,
		Grant:     []enums.Capability{enums.Capability("launch_rockets")},
		Actor:     actor,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveRefusesActivePrimary(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: uuid.New(), UserID: uuid.New(), IsPrimary: true, Actor: actor,
	})

	err := f.svc.Remove(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestRemoveSoftDeletesManager(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID: uuid.New(), UserID: uuid.New(), Actor: actor,
	})

	if err := f.svc.Remove(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(f.repo.deleted) != 1 || f.repo.deleted[0] != dto.ID {
		t.Fatal("expected soft delete on the manager row")
	}

	_, err := f.svc.Get(context.Background(), dto.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after removal, got %v", err)
	}

	last := f.outbox.events[len(f.outbox.events)-1]
	if last.EventType != enums.EventManagerRemoved {
		t.Fatalf("expected manager.removed event, got %q", last.EventType)
	}
}

func TestCanFailsClosed(t *testing.T) {
	f := newManagerFixture(t)
	actor := testActor()
	branchID := uuid.New()
	userID := uuid.New()

	ok, err := f.svc.Can(context.Background(), userID, branchID, enums.CapabilityEditBranch)
	if err != nil {
		t.Fatalf("Can: %v", err)
	}
	if ok {
		t.Fatal("expected denial for an unassigned user")
	}

	dto, _ := f.svc.Assign(context.Background(), AssignInput{
		BranchID:    branchID,
		UserID:      userID,
		Permissions: mustPerms(t, enums.CapabilityEditBranch),
		Actor:       actor,
	})

	ok, _ = f.svc.Can(context.Background(), userID, branchID, enums.CapabilityEditBranch)
	if !ok {
		t.Fatal("expected granted capability to pass")
	}
	ok, _ = f.svc.Can(context.Background(), userID, branchID, enums.CapabilityAccessFinancials)
	if ok {
		t.Fatal("expected ungranted capability to fail")
	}

	if _, err := f.svc.Deactivate(context.Background(), ActionInput{ManagerID: dto.ID, Actor: actor}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	ok, _ = f.svc.Can(context.Background(), userID, branchID, enums.CapabilityEditBranch)
	if ok {
		t.Fatal("expected inactive manager to be denied")
	}
}
