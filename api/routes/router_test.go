package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/internal/activity"
	"github.com/bizdirect/bizdirect-backend/internal/auth"
	"github.com/bizdirect/bizdirect-backend/internal/branches"
	"github.com/bizdirect/bizdirect-backend/internal/invitations"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/internal/notifications"
	pkgAuth "github.com/bizdirect/bizdirect-backend/pkg/auth"
	"github.com/bizdirect/bizdirect-backend/pkg/auth/session"
	"github.com/bizdirect/bizdirect-backend/pkg/config"
	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

type stubBranchesService struct {
	owned bool
}

func (s stubBranchesService) Get(ctx context.Context, id uuid.UUID) (*branches.BranchDTO, error) {
	return &branches.BranchDTO{ID: id}, nil
}

func (s stubBranchesService) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]branches.BranchDTO, error) {
	return nil, nil
}

func (s stubBranchesService) ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]branches.BusinessSummary, error) {
	return nil, nil
}

func (s stubBranchesService) OwnedBy(ctx context.Context, branchID, userID uuid.UUID) (bool, error) {
	return s.owned, nil
}

type stubManagersService struct {
	can bool
}

func (s stubManagersService) Assign(ctx context.Context, input managers.AssignInput) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: uuid.New(), BranchID: input.BranchID, UserID: input.UserID}, nil
}

func (s stubManagersService) AssignInTx(ctx context.Context, tx *gorm.DB, input managers.AssignInput) (*models.BranchManager, error) {
	return &models.BranchManager{}, nil
}

func (s stubManagersService) MakePrimary(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: input.ManagerID, IsPrimary: true}, nil
}

func (s stubManagersService) Activate(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: input.ManagerID, IsActive: true}, nil
}

func (s stubManagersService) Deactivate(ctx context.Context, input managers.ActionInput) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: input.ManagerID}, nil
}

func (s stubManagersService) UpdatePermissions(ctx context.Context, input managers.UpdatePermissionsInput) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: input.ManagerID}, nil
}

func (s stubManagersService) Remove(ctx context.Context, input managers.ActionInput) error {
	return nil
}

func (s stubManagersService) Get(ctx context.Context, id uuid.UUID) (*managers.ManagerDTO, error) {
	return &managers.ManagerDTO{ID: id}, nil
}

func (s stubManagersService) FindByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) (*managers.ManagerDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "manager not found")
}

func (s stubManagersService) ListActive(ctx context.Context, branchID uuid.UUID) ([]managers.ManagerDTO, error) {
	return nil, nil
}

func (s stubManagersService) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]managers.ManagerDTO, error) {
	return nil, nil
}

func (s stubManagersService) Can(ctx context.Context, userID, branchID uuid.UUID, capability enums.Capability) (bool, error) {
	return s.can, nil
}

type stubInvitationsService struct{}

func (stubInvitationsService) Create(ctx context.Context, input invitations.CreateInput) (*invitations.InvitationDTO, error) {
	return &invitations.InvitationDTO{ID: uuid.New(), BranchID: input.BranchID, Email: input.Email}, nil
}

func (stubInvitationsService) Accept(ctx context.Context, input invitations.AcceptInput) (*invitations.AcceptResult, error) {
	return &invitations.AcceptResult{}, nil
}

func (stubInvitationsService) Decline(ctx context.Context, input invitations.DeclineInput) (*invitations.InvitationDTO, error) {
	return &invitations.InvitationDTO{}, nil
}

func (stubInvitationsService) Cancel(ctx context.Context, input invitations.ActionInput) (*invitations.InvitationDTO, error) {
	return &invitations.InvitationDTO{ID: input.InvitationID}, nil
}

func (stubInvitationsService) Resend(ctx context.Context, input invitations.ActionInput) (*invitations.InvitationDTO, error) {
	return &invitations.InvitationDTO{ID: input.InvitationID}, nil
}

func (stubInvitationsService) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	return 0, nil
}

func (stubInvitationsService) FindByToken(ctx context.Context, token string) (*invitations.InvitationDTO, error) {
	return &invitations.InvitationDTO{Status: enums.InvitationStatusPending}, nil
}

func (stubInvitationsService) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]invitations.InvitationDTO, error) {
	return nil, nil
}

type stubActivityService struct{}

func (stubActivityService) Record(ctx context.Context, tx *gorm.DB, entry activity.Entry) error {
	return nil
}

func (stubActivityService) List(ctx context.Context, filter activity.Filter) (*activity.Page, error) {
	return &activity.Page{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "test-secret-test-secret-test-secret",
			Issuer:            "bizdirect-test",
			ExpirationMinutes: 15,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginEmailLimit: 5,
			LoginIPLimit:    20,
		},
	}
}

func newTestRouter(cfg *config.Config, owned, can bool) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubSessionManager{},
		Services{
			Auth:          stubAuthService{},
			Branches:      stubBranchesService{owned: owned},
			Managers:      stubManagersService{can: can},
			Invitations:   stubInvitationsService{},
			Activity:      stubActivityService{},
			Notifications: stubNotificationsService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	businessID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:           uuid.New(),
		Role:             role,
		ActiveBusinessID: &businessID,
		JTI:              session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), true, true)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, true, true)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, false, false)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleManager))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestManagerRoutesRequireOwnerOrAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, true, true)
	target := "/api/v1/managers/" + uuid.NewString()

	asManager := httptest.NewRequest(http.MethodGet, target, nil)
	asManager.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleManager))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asManager)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager role got %d", resp.Code)
	}

	asOwner := httptest.NewRequest(http.MethodGet, target, nil)
	asOwner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOwner))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asOwner)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner got %d", resp.Code)
	}
}

func TestBranchTeamRoutesGateOnOwnershipOrCapability(t *testing.T) {
	cfg := testConfig()
	target := "/api/v1/branches/" + uuid.NewString() + "/managers"

	owner := newTestRouter(cfg, true, false)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOwner))
	resp := httptest.NewRecorder()
	owner.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner got %d", resp.Code)
	}

	capable := newTestRouter(cfg, false, true)
	req = httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleManager))
	resp = httptest.NewRecorder()
	capable.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for capable manager got %d", resp.Code)
	}

	outsider := newTestRouter(cfg, false, false)
	req = httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleManager))
	resp = httptest.NewRecorder()
	outsider.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider got %d", resp.Code)
	}
}

func TestPublicInvitationLookup(t *testing.T) {
	router := newTestRouter(testConfig(), false, false)
	token := strings.Repeat("ab", 32)
	req := httptest.NewRequest(http.MethodGet, "/api/public/invitations/"+token, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public lookup got %d", resp.Code)
	}
}

func TestPublicValidateRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig(), false, false)
	req := httptest.NewRequest(http.MethodPost, "/api/public/validate", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestPublicValidateAcceptsGoodJSON(t *testing.T) {
	router := newTestRouter(testConfig(), false, false)
	body := `{"name":"Zed","email":"zed@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid payload got %d", resp.Code)
	}
}
