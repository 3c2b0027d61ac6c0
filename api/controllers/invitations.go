package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizdirect/bizdirect-backend/api/responses"
	"github.com/bizdirect/bizdirect-backend/api/validators"
	"github.com/bizdirect/bizdirect-backend/internal/invitations"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
	"github.com/bizdirect/bizdirect-backend/pkg/permissions"
)

type createInvitationRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	Position    *string         `json:"position,omitempty" validate:"omitempty,max=100"`
	Message     *string         `json:"message,omitempty" validate:"omitempty,max=500"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

type invitationTokenRequest struct {
	Token string `json:"token" validate:"required,len=64,hexadecimal"`
}

// ListInvitations returns every invitation sent for a branch.
func ListInvitations(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		branchID, err := parseIDParam(chi.URLParam(r, "branchID"), "branch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByBranch(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// CreateInvitation issues a new invitation for a branch.
func CreateInvitation(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		branchID, err := parseIDParam(chi.URLParam(r, "branchID"), "branch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createInvitationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
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

		invitation, err := svc.Create(r.Context(), invitations.CreateInput{
			BranchID:    branchID,
			Email:       body.Email,
			Position:    body.Position,
			Message:     body.Message,
			Permissions: perms,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invitation)
	}
}

// AcceptInvitation redeems a pending invitation token for the signed-in user.
func AcceptInvitation(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		var body invitationTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Accept(r.Context(), invitations.AcceptInput{
			Token: body.Token,
			User:  actor.UserID,
			Actor: actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DeclineInvitation turns a pending invitation down by token.
func DeclineInvitation(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		var body invitationTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invitation, err := svc.Decline(r.Context(), invitations.DeclineInput{
			Token: body.Token,
			Actor: actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invitation)
	}
}

// ResendInvitation rotates the token and pushes the expiry window out.
func ResendInvitation(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return invitationAction(func(r *http.Request, input invitations.ActionInput) (*invitations.InvitationDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable")
		}
		return svc.Resend(r.Context(), input)
	}, logg)
}

// CancelInvitation withdraws a pending invitation.
func CancelInvitation(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return invitationAction(func(r *http.Request, input invitations.ActionInput) (*invitations.InvitationDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable")
		}
		return svc.Cancel(r.Context(), input)
	}, logg)
}

func invitationAction(run func(r *http.Request, input invitations.ActionInput) (*invitations.InvitationDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invitationID, err := parseIDParam(chi.URLParam(r, "invitationID"), "invitation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invitation, err := run(r, invitations.ActionInput{InvitationID: invitationID, Actor: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invitation)
	}
}

// LookupInvitation resolves an invitation token for the email landing page.
// It is unauthenticated, which is why it only ever returns the invitation's
// public shape.
func LookupInvitation(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitations service unavailable"))
			return
		}

		token := chi.URLParam(r, "token")
		if len(token) != 64 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid invitation token"))
			return
		}

		invitation, err := svc.FindByToken(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invitation)
	}
}
