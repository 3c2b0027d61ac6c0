package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizdirect/bizdirect-backend/api/responses"
	"github.com/bizdirect/bizdirect-backend/internal/branches"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
)

// GetBranch returns one branch profile.
func GetBranch(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "branches service unavailable"))
			return
		}

		branchID, err := parseIDParam(chi.URLParam(r, "branchID"), "branch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branch, err := svc.Get(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, branch)
	}
}

// ListBusinessBranches returns every branch under a business.
func ListBusinessBranches(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "branches service unavailable"))
			return
		}

		businessID, err := parseIDParam(chi.URLParam(r, "businessID"), "business id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByBusiness(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// ListMyBusinesses returns the businesses owned by the signed-in user.
func ListMyBusinesses(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "branches service unavailable"))
			return
		}

		userID, err := contextUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListBusinessesByOwner(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
