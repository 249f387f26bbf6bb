package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes counters for the submission pipeline and the scoring
// engine. Construct once at startup; services treat a nil *Metrics as a
// no-op so tests do not touch the default registry.
type Metrics struct {
	SubmissionsAdmitted prometheus.Counter
	SubmissionsDenied   *prometheus.CounterVec
	RateLimitWarnings   prometheus.Counter
	TrustScoresComputed prometheus.Counter
	TrustScoreValue     prometheus.Histogram
	CredentialsMinted   prometheus.Counter
	TimestampFallbacks  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SubmissionsAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustforge_submissions_admitted_total",
			Help: "Total number of credential submissions admitted by the guard pipeline",
		}),
		SubmissionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustforge_submissions_denied_total",
			Help: "Total number of credential submissions denied, by pipeline stage",
		}, []string{"stage"}),
		RateLimitWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustforge_ratelimit_warnings_total",
			Help: "Total number of submissions admitted with a rate limit warning",
		}),
		TrustScoresComputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustforge_trust_scores_computed_total",
			Help: "Total number of trust scores computed",
		}),
		TrustScoreValue: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustforge_trust_score_value",
			Help:    "Distribution of computed trust scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		CredentialsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustforge_credentials_minted_total",
			Help: "Total number of credentials minted",
		}),
		TimestampFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustforge_timestamp_fallbacks_total",
			Help: "Total number of malformed credential timestamps replaced with the evaluation time during scoring",
		}),
	}
}

func (m *Metrics) RecordAdmission() {
	if m == nil {
		return
	}
	m.SubmissionsAdmitted.Inc()
}

func (m *Metrics) RecordDenial(stage string) {
	if m == nil {
		return
	}
	m.SubmissionsDenied.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordRateLimitWarning() {
	if m == nil {
		return
	}
	m.RateLimitWarnings.Inc()
}

func (m *Metrics) RecordScore(total float64, fallbacks int) {
	if m == nil {
		return
	}
	m.TrustScoresComputed.Inc()
	m.TrustScoreValue.Observe(total)
	m.TimestampFallbacks.Add(float64(fallbacks))
}

func (m *Metrics) RecordMint() {
	if m == nil {
		return
	}
	m.CredentialsMinted.Inc()
}
