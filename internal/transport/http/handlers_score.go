package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustforge/internal/limits"
	rlmodels "trustforge/internal/ratelimit/models"
	"trustforge/internal/trust"
	dErrors "trustforge/pkg/domainerrors"
	"trustforge/pkg/platform/httputil"
)

type scoreRequest struct {
	Credentials []trust.Credential `json:"credentials"`
}

func (h *Handler) handleScoreInline(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[scoreRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	score := h.deps.Scorer.Score(req.Credentials)
	h.deps.Metrics.RecordScore(float64(score.Total), score.Diagnostics.TimestampFallbacks)
	httputil.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) handleScoreOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "owner is required"))
		return
	}

	records, err := h.deps.Registry.ListByOwner(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credentials := make([]trust.Credential, 0, len(records))
	for _, record := range records {
		credentials = append(credentials, record.Credential())
	}

	score := h.deps.Scorer.Score(credentials)
	h.deps.Metrics.RecordScore(float64(score.Total), score.Diagnostics.TimestampFallbacks)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"owner":            owner,
		"credential_count": len(credentials),
		"score":            score,
	})
}

type limitsResponse struct {
	Owner       string          `json:"owner"`
	Rate        rlmodels.Result `json:"rate"`
	Credentials limits.Result   `json:"credentials"`
	Warnings    []string        `json:"warnings,omitempty"`
}

func (h *Handler) handleLimits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "owner is required"))
		return
	}

	rateVerdict, err := h.deps.RateLimiter.Check(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, err := h.deps.Registry.CountByOwner(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ceilingVerdict := limits.CheckCredentialLimit(count)

	var warnings []string
	if msg, ok := rlmodels.WarningMessage(rateVerdict.MinuteCount, rateVerdict.HourCount); ok {
		warnings = append(warnings, msg)
	}
	if ceilingVerdict.Warning != "" {
		warnings = append(warnings, ceilingVerdict.Warning)
	}

	httputil.WriteJSON(w, http.StatusOK, limitsResponse{
		Owner:       owner,
		Rate:        *rateVerdict,
		Credentials: ceilingVerdict,
		Warnings:    warnings,
	})
}
