package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizdirect/bizdirect-backend/api/responses"
	"github.com/bizdirect/bizdirect-backend/api/validators"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

type assignManagerRequest struct {
	UserID      string          `json:"user_id" validate:"required,uuid4"`
	Position    *string         `json:"position,omitempty" validate:"omitempty,max=120"`
	EmployeeID  *string         `json:"employee_id,omitempty" validate:"omitempty,max=64"`
	Phone       *string         `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email       *string         `json:"email,omitempty" validate:"omitempty,email"`
	WhatsApp    *string         `json:"whatsapp,omitempty" validate:"omitempty,max=32"`
	IsPrimary   bool            `json:"is_primary"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

type updatePermissionsRequest struct {
	Replace map[string]bool `json:"replace,omitempty"`
	Grant   []string        `json:"grant,omitempty"`
	Revoke  []string        `json:"revoke,omitempty"`
}

// ListManagers returns every manager row for a branch, removed ones excluded.
func ListManagers(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable"))
			return
		}

		branchID, err := parseIDParam(chi.URLParam(r, "branchID"), "branch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var items []managers.ManagerDTO
		if r.URL.Query().Get("activeOnly") == "true" {
			items, err = svc.ListActive(r.Context(), branchID)
		} else {
			items, err = svc.ListByBranch(r.Context(), branchID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AssignManager creates a branch manager assignment.
func AssignManager(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable"))
			return
		}

		branchID, err := parseIDParam(chi.URLParam(r, "branchID"), "branch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignManagerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := parseIDParam(body.UserID, "user id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		perms, err := permissions.FromStrings(body.Permissions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permissions"))
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		manager, err := svc.Assign(r.Context(), managers.AssignInput{
			BranchID:    branchID,
			UserID:      userID,
			Position:    body.Position,
			EmployeeID:  body.EmployeeID,
			Phone:       body.Phone,
			Email:       body.Email,
			WhatsApp:    body.WhatsApp,
			IsPrimary:   body.IsPrimary,
			Permissions: perms,
			AssignedBy:  &actor.UserID,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, manager)
	}
}

// GetManager returns a single manager row.
func GetManager(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable"))
			return
		}

		managerID, err := parseIDParam(chi.URLParam(r, "managerID"), "manager id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		manager, err := svc.Get(r.Context(), managerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, manager)
	}
}

func managerAction(run func(r *http.Request, input managers.ActionInput) (*managers.ManagerDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		managerID, err := parseIDParam(chi.URLParam(r, "managerID"), "manager id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		manager, err := run(r, managers.ActionInput{ManagerID: managerID, Actor: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if manager == nil {
			responses.WriteSuccess(w, map[string]string{"status": "removed"})
			return
		}
		responses.WriteSuccess(w, manager)
	}
}

// MakeManagerPrimary promotes a manager to the branch's primary contact.
func MakeManagerPrimary(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return managerAction(func(r *http.Request, input managers.ActionInput) (*managers.ManagerDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable")
		}
		return svc.MakePrimary(r.Context(), input)
	}, logg)
}

// ActivateManager re-enables a deactivated manager.
func ActivateManager(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return managerAction(func(r *http.Request, input managers.ActionInput) (*managers.ManagerDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable")
		}
		return svc.Activate(r.Context(), input)
	}, logg)
}

// DeactivateManager suspends a manager without removing the assignment.
func DeactivateManager(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return managerAction(func(r *http.Request, input managers.ActionInput) (*managers.ManagerDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable")
		}
		return svc.Deactivate(r.Context(), input)
	}, logg)
}

// RemoveManager soft deletes the assignment.
func RemoveManager(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return managerAction(func(r *http.Request, input managers.ActionInput) (*managers.ManagerDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable")
		}
		return nil, svc.Remove(r.Context(), input)
	}, logg)
}

// UpdateManagerPermissions replaces or adjusts a manager's capability set.
func UpdateManagerPermissions(svc managers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "managers service unavailable"))
			return
		}

		managerID, err := parseIDParam(chi.URLParam(r, "managerID"), "manager id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePermissionsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Replace == nil && len(body.Grant) == 0 && len(body.Revoke) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no permission changes supplied"))
			return
		}

		input := managers.UpdatePermissionsInput{ManagerID: managerID}

		if body.Replace != nil {
			replace, err := permissions.FromStrings(body.Replace)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permissions"))
				return
			}
			input.Replace = replace
		}

		if input.Grant, err = parseCapabilities(body.Grant); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.Revoke, err = parseCapabilities(body.Revoke); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if input.Actor, err = requestActor(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		manager, err := svc.UpdatePermissions(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, manager)
	}
}

func parseCapabilities(raw []string) ([]enums.Capability, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	caps := make([]enums.Capability, 0, len(raw))
	for _, value := range raw {
		capability, err := enums.ParseCapability(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capability")
		}
		caps = append(caps, capability)
	}
	return caps, nil
}
