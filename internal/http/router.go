// Package httpapi assembles the HTTP surface: middleware chain, operational
// endpoints, and the per-module handlers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmw "talentgate/pkg/platform/middleware/auth"
	"talentgate/pkg/platform/middleware/metadata"
	"talentgate/pkg/platform/middleware/request"
	"talentgate/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter wires the middleware chain and mounts every module handler
// behind authentication. Operational endpoints stay outside the auth gate.
func NewRouter(logger *slog.Logger, validator authmw.TokenValidator, checkers map[string]HealthChecker, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealth(logger, checkers))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(authmw.RequireActor(validator, logger))
		for _, registrar := range registrars {
			registrar.Register(api)
		}
	})

	return r
}

func handleHealth(logger *slog.Logger, checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for name, checker := range checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(name + " unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
