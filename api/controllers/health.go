package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/bizdirect/bizdirect-backend/api/responses"
	"github.com/bizdirect/bizdirect-backend/pkg/config"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BizDirect-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness by probing the database and redis.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BizDirect-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		deps := map[string]pinger{"database": database, "redis": cache}
		checks := make(map[string]string, len(deps))
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "readiness probe failed for "+name, err)
				}
				continue
			}
			checks[name] = "up"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
