package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizdirect/bizdirect-backend/api/controllers"
	"github.com/bizdirect/bizdirect-backend/api/middleware"
	"github.com/bizdirect/bizdirect-backend/internal/activity"
	"github.com/bizdirect/bizdirect-backend/internal/auth"
	"github.com/bizdirect/bizdirect-backend/internal/branches"
	"github.com/bizdirect/bizdirect-backend/internal/invitations"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/internal/notifications"
	"github.com/bizdirect/bizdirect-backend/pkg/auth/session"
	"github.com/bizdirect/bizdirect-backend/pkg/config"
	"github.com/bizdirect/bizdirect-backend/pkg/db"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles the domain services the router exposes over HTTP.
type Services struct {
	Auth          auth.Service
	Branches      branches.Service
	Managers      managers.Service
	Invitations   invitations.Service
	Activity      activity.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	teamGate := middleware.RequireBranchAccess(svcs.Branches, svcs.Managers, logg, enums.CapabilityManageStaff)
	branchViewGate := middleware.RequireBranchAccess(svcs.Branches, svcs.Managers, logg, enums.CapabilityEditBranch)
	ownerOrAdmin := middleware.RequireAnyRole(logg, string(enums.ActorRoleOwner), string(enums.ActorRoleAdmin))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
		r.Get("/invitations/{token}", controllers.LookupInvitation(svcs.Invitations, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessions, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequestMeta)
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/businesses", func(r chi.Router) {
			r.Get("/", controllers.ListMyBusinesses(svcs.Branches, logg))
			r.Get("/{businessID}/branches", controllers.ListBusinessBranches(svcs.Branches, logg))
		})

		r.Route("/v1/branches/{branchID}", func(r chi.Router) {
			r.With(branchViewGate).Get("/", controllers.GetBranch(svcs.Branches, logg))

			r.Route("/managers", func(r chi.Router) {
				r.Use(teamGate)
				r.Get("/", controllers.ListManagers(svcs.Managers, logg))
				r.Post("/", controllers.AssignManager(svcs.Managers, logg))
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Use(teamGate)
				r.Get("/", controllers.ListInvitations(svcs.Invitations, logg))
				r.Post("/", controllers.CreateInvitation(svcs.Invitations, logg))
			})

			r.With(teamGate).Get("/activity", controllers.ListActivity(svcs.Activity, logg))
		})

		r.Route("/v1/managers/{managerID}", func(r chi.Router) {
			r.Use(ownerOrAdmin)
			r.Get("/", controllers.GetManager(svcs.Managers, logg))
			r.Post("/make-primary", controllers.MakeManagerPrimary(svcs.Managers, logg))
			r.Post("/activate", controllers.ActivateManager(svcs.Managers, logg))
			r.Post("/deactivate", controllers.DeactivateManager(svcs.Managers, logg))
			r.Patch("/permissions", controllers.UpdateManagerPermissions(svcs.Managers, logg))
			r.Delete("/", controllers.RemoveManager(svcs.Managers, logg))
		})

		r.Route("/v1/invitations", func(r chi.Router) {
			r.Post("/accept", controllers.AcceptInvitation(svcs.Invitations, logg))
			r.Post("/decline", controllers.DeclineInvitation(svcs.Invitations, logg))
			r.With(ownerOrAdmin).Post("/{invitationID}/resend", controllers.ResendInvitation(svcs.Invitations, logg))
			r.With(ownerOrAdmin).Post("/{invitationID}/cancel", controllers.CancelInvitation(svcs.Invitations, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
		r.Get("/ping", controllers.AdminPing())
	})

	return r
}
