package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/api/responses"
	"github.com/bizdirect/bizdirect-backend/api/validators"
	"github.com/bizdirect/bizdirect-backend/internal/activity"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/pagination"
)

// ListActivity returns the branch audit trail, newest first.
func ListActivity(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}

		branchID, err := parseIDParam(chi.URLParam(r, "branchID"), "branch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := activity.Filter{BranchID: branchID}

		if raw := strings.TrimSpace(r.URL.Query().Get("managerId")); raw != "" {
			managerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid manager id"))
				return
			}
			filter.ManagerID = &managerID
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
			action := enums.ActivityAction(raw)
			filter.Action = &action
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
			since, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "since must be RFC3339"))
				return
			}
			filter.Since = &since
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Page = pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
