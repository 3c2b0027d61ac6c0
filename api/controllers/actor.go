package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/api/middleware"
	"github.com/bizdirect/bizdirect-backend/internal/managers"
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
)

// requestActor builds the mutation actor from the authenticated context plus
// the request's network provenance.
func requestActor(r *http.Request) (managers.Actor, error) {
	ctx := r.Context()

	userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return managers.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	actor := managers.Actor{
		UserID: userID,
		Role:   enums.ActorRole(middleware.RoleFromContext(ctx)),
	}
	if ip := middleware.ClientIPFromContext(ctx); ip != "" {
		actor.IPAddress = &ip
	}
	if ua := middleware.UserAgentFromContext(ctx); ua != "" {
		actor.UserAgent = &ua
	}
	return actor, nil
}

func parseIDParam(raw string, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return id, nil
}
