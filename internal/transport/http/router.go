package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"casework/internal/platform/metrics"
	"casework/pkg/platform/httputil"
	adminmw "casework/pkg/platform/middleware/admin"
	authmw "casework/pkg/platform/middleware/auth"
	"casework/pkg/platform/middleware/metadata"
	"casework/pkg/platform/middleware/request"
	"casework/pkg/platform/middleware/requesttime"
)

const (
	healthTimeout = 2 * time.Second
	adminRole     = "ADMIN"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps collects what the router wires together. Metrics, Revocations,
// RateLimit, Admin and Health entries are optional.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Validator   authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	RateLimit   func(http.Handler) http.Handler
	Cases       Registrar
	Notes       Registrar
	Admin       Registrar
	Health      map[string]HealthChecker
}

// NewRouter builds the HTTP surface. /health and /metrics are public;
// everything else requires a bearer token, and /admin additionally the
// ADMIN role.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recover(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/health", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Revocations, d.Logger))
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}
		d.Cases.Register(r)
		d.Notes.Register(r)
		if d.Admin != nil {
			r.Group(func(r chi.Router) {
				r.Use(adminmw.RequireRole(d.Logger, adminRole))
				d.Admin.Register(r)
			})
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		results := make([]string, len(names))
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range names {
			results[i] = "ok"
			check := checks[name]
			g.Go(func() error {
				if err := check.Health(gctx); err != nil {
					results[i] = "unavailable"
					return err
				}
				return nil
			})
		}
		err := g.Wait()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		for i, name := range names {
			resp.Checks[name] = results[i]
		}
		status := http.StatusOK
		if err != nil {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
