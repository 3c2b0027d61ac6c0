package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/api/responses"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
)

type CapabilityChecker interface {
	Can(ctx context.Context, userID, branchID uuid.UUID, capability enums.Capability) (bool, error)
}

type BranchOwnershipChecker interface {
	OwnedBy(ctx context.Context, branchID, userID uuid.UUID) (bool, error)
}

// RequireBranchAccess lets a request through when the authenticated user owns
// the branch's business, carries the admin role, or holds the given capability
// as an active manager of the branch. The branch is taken from the branchID
// URL parameter.
func RequireBranchAccess(owners BranchOwnershipChecker, managers CapabilityChecker, logg *logger.Logger, capability enums.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id"))
				return
			}

			if RoleFromContext(ctx) == string(enums.ActorRoleAdmin) {
				next.ServeHTTP(w, r)
				return
			}

			if owners != nil {
				owned, err := owners.OwnedBy(ctx, branchID, userID)
				if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check branch ownership"))
					return
				}
				if owned {
					next.ServeHTTP(w, r)
					return
				}
			}

			if managers == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "branch access denied"))
				return
			}

			allowed, err := managers.Can(ctx, userID, branchID, capability)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager capability"))
				return
			}
			if !allowed {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "branch access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
