// Package httptransport is the thin HTTP layer. It delegates to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trustforge/internal/platform/metrics"
	"trustforge/internal/platform/middleware"
	"trustforge/internal/ratelimit/models"
	"trustforge/internal/registry"
	"trustforge/internal/submit"
	"trustforge/internal/trust"
)

// Submitter runs the guarded write path.
type Submitter interface {
	Submit(ctx context.Context, req submit.Request) (*submit.Outcome, error)
}

// Registry exposes the credential lifecycle operations the read and
// lifecycle endpoints need.
type Registry interface {
	Update(ctx context.Context, owner, id string, req registry.UpdateRequest) (registry.Record, error)
	Delete(ctx context.Context, owner, id string) error
	ListByOwner(ctx context.Context, owner string) ([]registry.Record, error)
	CountByOwner(ctx context.Context, owner string) (int, error)
}

// RateLimiter reports current window usage without consuming quota.
type RateLimiter interface {
	Check(ctx context.Context, subject string) (*models.Result, error)
}

// Scorer computes trust scores over credential sets.
type Scorer interface {
	Score(credentials []trust.Credential) trust.TrustScore
}

// Deps collects everything the router serves.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	JWTValidator middleware.JWTValidator
	Submitter    Submitter
	Registry     Registry
	RateLimiter  RateLimiter
	Scorer       Scorer
	// Health reports readiness of backing stores; nil means always healthy.
	Health func(ctx context.Context) error
}

// NewRouter wires all public endpoints. Write endpoints require a bearer
// token; read endpoints are public.
func NewRouter(deps Deps) http.Handler {
	h := &Handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		r.Post("/v1/credentials", h.handleSubmit)
		r.Get("/v1/credentials", h.handleListOwn)
		r.Patch("/v1/credentials/{id}", h.handleUpdate)
		r.Delete("/v1/credentials/{id}", h.handleDelete)
	})

	r.Post("/v1/trust-score", h.handleScoreInline)
	r.Get("/v1/trust-score/{owner}", h.handleScoreOwner)
	r.Get("/v1/limits/{owner}", h.handleLimits)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Handler holds router dependencies for the endpoint methods.
type Handler struct {
	deps Deps
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
