package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/gearshed-backend/api/responses"
	"github.com/angelmondragon/gearshed-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

const healthTimeout = 2 * time.Second

// Pinger is anything the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gearshed-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// Health pings the ledger database. A failed ping answers 503.
func Health(cfg *config.Config, logg *logger.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gearshed-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable").
				WithDetails(map[string]any{"component": "ledger"}))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
