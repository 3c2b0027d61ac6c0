package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/internal/invitations"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
)

type testInvitationsService struct {
	createFn  func(ctx context.Context, input invitations.CreateInput) (*invitations.InvitationDTO, error)
	acceptFn  func(ctx context.Context, input invitations.AcceptInput) (*invitations.AcceptResult, error)
	declineFn func(ctx context.Context, input invitations.DeclineInput) (*invitations.InvitationDTO, error)
	resendFn  func(ctx context.Context, input invitations.ActionInput) (*invitations.InvitationDTO, error)
	lookupFn  func(ctx context.Context, token string) (*invitations.InvitationDTO, error)
}

func (s *testInvitationsService) Create(ctx context.Context, input invitations.CreateInput) (*invitations.InvitationDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &invitations.InvitationDTO{ID: uuid.New()}, nil
}

func (s *testInvitationsService) Accept(ctx context.Context, input invitations.AcceptInput) (*invitations.AcceptResult, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, input)
	}
	return &invitations.AcceptResult{}, nil
}

func (s *testInvitationsService) Decline(ctx context.Context, input invitations.DeclineInput) (*invitations.InvitationDTO, error) {
	if s.declineFn != nil {
		return s.declineFn(ctx, input)
	}
	return &invitations.InvitationDTO{}, nil
}

func (s *testInvitationsService) Cancel(ctx context.Context, input invitations.ActionInput) (*invitations.InvitationDTO, error) {
	return &invitations.InvitationDTO{ID: input.InvitationID}, nil
}

func (s *testInvitationsService) Resend(ctx context.Context, input invitations.ActionInput) (*invitations.InvitationDTO, error) {
	if s.resendFn != nil {
		return s.resendFn(ctx, input)
	}
	return &invitations.InvitationDTO{ID: input.InvitationID}, nil
}

func (s *testInvitationsService) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	return 0, nil
}

func (s *testInvitationsService) FindByToken(ctx context.Context, token string) (*invitations.InvitationDTO, error) {
	if s.lookupFn != nil {
		return s.lookupFn(ctx, token)
	}
	return &invitations.InvitationDTO{Status: enums.InvitationStatusPending}, nil
}

func (s *testInvitationsService) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]invitations.InvitationDTO, error) {
	return nil, nil
}

func TestCreateInvitationForwardsInput(t *testing.T) {
	branchID := uuid.New()
	var got invitations.CreateInput
	svc := &testInvitationsService{
		createFn: func(ctx context.Context, input invitations.CreateInput) (*invitations.InvitationDTO, error) {
			got = input
			return &invitations.InvitationDTO{ID: uuid.New(), BranchID: input.BranchID}, nil
		},
	}

	body := `{"email":"ana@example.com","permissions":{"view_leads":true}}`
	req := authedRequest(http.MethodPost, "/api/v1/branches/"+branchID.String()+"/invitations", body, map[string]string{"branchID": branchID.String()})
	resp := httptest.NewRecorder()
	CreateInvitation(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d body %s", resp.Code, resp.Body.String())
	}
	if got.BranchID != branchID {
		t.Fatalf("unexpected branch %s", got.BranchID)
	}
	if got.Email != "ana@example.com" {
		t.Fatalf("unexpected email %q", got.Email)
	}
	if !got.Permissions.Has(enums.CapabilityViewLeads) {
		t.Fatal("expected view_leads permission forwarded")
	}
}

func TestCreateInvitationRejectsBadEmail(t *testing.T) {
	branchID := uuid.New()
	svc := &testInvitationsService{
		createFn: func(ctx context.Context, input invitations.CreateInput) (*invitations.InvitationDTO, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	body := `{"email":"not-an-email"}`
	req := authedRequest(http.MethodPost, "/api/v1/branches/"+branchID.String()+"/invitations", body, map[string]string{"branchID": branchID.String()})
	resp := httptest.NewRecorder()
	CreateInvitation(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptInvitationUsesContextUser(t *testing.T) {
	token := strings.Repeat("ab", 32)
	var got invitations.AcceptInput
	svc := &testInvitationsService{
		acceptFn: func(ctx context.Context, input invitations.AcceptInput) (*invitations.AcceptResult, error) {
			got = input
			return &invitations.AcceptResult{}, nil
		},
	}

	body := `{"token":"` + token + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/invitations/accept", body, nil)
	resp := httptest.NewRecorder()
	AcceptInvitation(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body %s", resp.Code, resp.Body.String())
	}
	if got.Token != token {
		t.Fatalf("unexpected token %q", got.Token)
	}
	if got.User == uuid.Nil || got.User != got.Actor.UserID {
		t.Fatal("expected accepting user taken from the auth context")
	}
}

func TestAcceptInvitationRejectsShortToken(t *testing.T) {
	svc := &testInvitationsService{
		acceptFn: func(ctx context.Context, input invitations.AcceptInput) (*invitations.AcceptResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	body := `{"token":"deadbeef"}`
	req := authedRequest(http.MethodPost, "/api/v1/invitations/accept", body, nil)
	resp := httptest.NewRecorder()
	AcceptInvitation(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDeclineInvitationMapsInvalidToken(t *testing.T) {
	svc := &testInvitationsService{
		declineFn: func(ctx context.Context, input invitations.DeclineInput) (*invitations.InvitationDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInvitation, "invitation is not valid")
		},
	}

	body := `{"token":"` + strings.Repeat("cd", 32) + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/invitations/decline", body, nil)
	resp := httptest.NewRecorder()
	DeclineInvitation(svc, testLogger())(resp, req)

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
	if envelope.Error.Code != string(pkgerrors.CodeInvalidInvitation) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestResendInvitationForwardsID(t *testing.T) {
	invitationID := uuid.New()
	var got invitations.ActionInput
	svc := &testInvitationsService{
		resendFn: func(ctx context.Context, input invitations.ActionInput) (*invitations.InvitationDTO, error) {
			got = input
			return &invitations.InvitationDTO{ID: input.InvitationID}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/invitations/"+invitationID.String()+"/resend", "", map[string]string{"invitationID": invitationID.String()})
	resp := httptest.NewRecorder()
	ResendInvitation(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body %s", resp.Code, resp.Body.String())
	}
	if got.InvitationID != invitationID {
		t.Fatalf("unexpected invitation %s", got.InvitationID)
	}
}

func TestLookupInvitationRejectsMalformedToken(t *testing.T) {
	svc := &testInvitationsService{
		lookupFn: func(ctx context.Context, token string) (*invitations.InvitationDTO, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/public/invitations/short", "", map[string]string{"token": "short"})
	resp := httptest.NewRecorder()
	LookupInvitation(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
