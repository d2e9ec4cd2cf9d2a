package controllers

import (
	"context"
	"net/http"

	"github.com/sahilkhatri/pharmakart-backend/api/responses"
	"github.com/sahilkhatri/pharmakart-backend/pkg/config"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
)

// ReadinessPinger reports whether a downstream dependency is reachable.
type ReadinessPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pharmakart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every registered dependency responds.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers ...ReadinessPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pharmakart-Env", cfg.App.Env)
		for _, pinger := range pingers {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
