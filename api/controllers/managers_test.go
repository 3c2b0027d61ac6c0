package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/api/middleware"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
)

type testManagersService struct {
	assignFn      func(ctx context.Context, input managers.AssignInput) (*managers.ManagerDTO, error)
	makePrimaryFn func(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error)
	updatePermsFn func(ctx context.Context, input managers.UpdatePermissionsInput) (*managers.ManagerDTO, error)
	removeFn      func(ctx context.Context, input managers.ActionInput) error
	listFn        func(ctx context.Context, branchID uuid.UUID) ([]managers.ManagerDTO, error)
}

func (s *testManagersService) Assign(ctx context.Context, input managers.AssignInput) (*managers.ManagerDTO, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, input)
	}
	return &managers.ManagerDTO{ID: uuid.New()}, nil
}

func (s *testManagersService) AssignInTx(ctx context.Context, tx *gorm.DB, input managers.AssignInput) (*models.BranchManager, error) {
	return &models.BranchManager{}, nil
}

func (s *testManagersService) MakePrimary(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error) {
	if s.makePrimaryFn != nil {
		return s.makePrimaryFn(ctx, input)
	}
	return &managers.ManagerDTO{ID: input.ManagerID}, nil
}

func (s *testManagersService) Activate(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: input.ManagerID, IsActive: true}, nil
}

func (s *testManagersService) Deactivate(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: input.ManagerID}, nil
}

func (s *testManagersService) UpdatePermissions(ctx context.Context, input managers.UpdatePermissionsInput) (*managers.ManagerDTO, error) {
	if s.updatePermsFn != nil {
		return s.updatePermsFn(ctx, input)
	}
	return &managers.ManagerDTO{ID: input.ManagerID}, nil
}

func (s *testManagersService) Remove(ctx context.Context, input managers.ActionInput) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, input)
	}
	return nil
}

func (s *testManagersService) Get(ctx context.Context, id uuid.UUID) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: id}, nil
}

func (s *testManagersService) FindByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) (*managers.ManagerDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "manager not found")
}

func (s *testManagersService) ListActive(ctx context.Context, branchID uuid.UUID) ([]managers.ManagerDTO, error) {
	return nil, nil
}

func (s *testManagersService) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]managers.ManagerDTO, error) {
	if s.listFn != nil {
		return s.listFn(ctx, branchID)
	}
	return nil, nil
}

func (s *testManagersService) Can(ctx context.Context, userID, branchID uuid.UUID, capability enums.Capability) (bool, error) {
	return false, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func authedRequest(method, target string, body string, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.ActorRoleOwner))

	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestAssignManagerCreatesAssignment(t *testing.T) {
	branchID := uuid.New()
	userID := uuid.New()
	var got managers.AssignInput
	svc := &testManagersService{
		assignFn: func(ctx context.Context, input managers.AssignInput) (*managers.ManagerDTO, error) {
			got = input
			return &managers.ManagerDTO{ID: uuid.New(), BranchID: input.BranchID, UserID: input.UserID}, nil
		},
	}

	body := `{"user_id":"` + userID.String() + `","is_primary":true,"permissions":{"manage_staff":true}}`
	req := authedRequest(http.MethodPost, "/api/v1/branches/"+branchID.String()+"/managers", body, map[string]string{"branchID": branchID.String()})
	resp := httptest.NewRecorder()
	AssignManager(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d body %s", resp.Code, resp.Body.String())
	}
	if got.BranchID != branchID || got.UserID != userID {
		t.Fatalf("service received wrong identifiers: %+v", got)
	}
	if !got.IsPrimary {
		t.Fatal("expected primary flag forwarded")
	}
	if !got.Permissions.Has(enums.CapabilityManageStaff) {
		t.Fatal("expected manage_staff permission forwarded")
	}
	if got.AssignedBy == nil || *got.AssignedBy != got.Actor.UserID {
		t.Fatal("expected assigned_by defaulted to the actor")
	}
}

func TestAssignManagerRejectsUnknownPermission(t *testing.T) {
	branchID := uuid.New()
	svc := &testManagersService{
		assignFn: func(ctx context.Context, input managers.AssignInput) (*managers.ManagerDTO, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	body := `{"user_id":"` + uuid.NewString() + `","permissions":{"launch_rockets":true}}`
	req := authedRequest(http.MethodPost, "/api/v1/branches/"+branchID.String()+"/managers", body, map[string]string{"branchID": branchID.String()})
	resp := httptest.NewRecorder()
	AssignManager(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateManagerPermissionsParsesDeltas(t *testing.T) {
	managerID := uuid.New()
	var got managers.UpdatePermissionsInput
	svc := &testManagersService{
		updatePermsFn: func(ctx context.Context, input managers.UpdatePermissionsInput) (*managers.ManagerDTO, error) {
			got = input
			return &managers.ManagerDTO{ID: input.ManagerID}, nil
		},
	}

	body := `{"grant":["view_leads"],"revoke":["manage_staff"]}`
	req := authedRequest(http.MethodPatch, "/api/v1/managers/"+managerID.String()+"/permissions", body, map[string]string{"managerID": managerID.String()})
	resp := httptest.NewRecorder()
	UpdateManagerPermissions(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body %s", resp.Code, resp.Body.String())
	}
	if len(got.Grant) != 1 || got.Grant[0] != enums.CapabilityViewLeads {
		t.Fatalf("unexpected grant set: %v", got.Grant)
	}
	if len(got.Revoke) != 1 || got.Revoke[0] != enums.CapabilityManageStaff {
		t.Fatalf("unexpected revoke set: %v", got.Revoke)
	}
}

func TestUpdateManagerPermissionsRejectsEmptyBody(t *testing.T) {
	managerID := uuid.New()
	svc := &testManagersService{}

	req := authedRequest(http.MethodPatch, "/api/v1/managers/"+managerID.String()+"/permissions", `{}`, map[string]string{"managerID": managerID.String()})
	resp := httptest.NewRecorder()
	UpdateManagerPermissions(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRemoveManagerMapsConstraintViolation(t *testing.T) {
	managerID := uuid.New()
	svc := &testManagersService{
		removeFn: func(ctx context.Context, input managers.ActionInput) error {
			return pkgerrors.New(pkgerrors.CodeConstraintViolation, "active primary manager cannot be removed")
		},
	}

	req := authedRequest(http.MethodDelete, "/api/v1/managers/"+managerID.String(), "", map[string]string{"managerID": managerID.String()})
	resp := httptest.NewRecorder()
	RemoveManager(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeConstraintViolation) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestMakeManagerPrimaryRequiresAuthContext(t *testing.T) {
	managerID := uuid.New()
	svc := &testManagersService{
		makePrimaryFn: func(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/managers/"+managerID.String()+"/make-primary", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("managerID", managerID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	MakeManagerPrimary(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
