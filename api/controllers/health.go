package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/poslite-backend/api/responses"
	"github.com/angelmondragon/poslite-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POSLite-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the store and answers 503 while it is unreachable.
func HealthReady(cfg *config.Config, db pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POSLite-Env", cfg.App.Env)
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping failed"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready", "db_driver": cfg.DB.Driver})
	}
}
