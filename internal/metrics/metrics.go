// Package metrics holds the Prometheus collectors of the marketplace
// domain. HTTP collectors live with the api middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fraudScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipmarket_fraud_score",
			Help:    "Fraud scores assigned to submitted posts",
			Buckets: []float64{0, 10, 25, 50, 75, 100},
		},
		[]string{"scorer"},
	)

	scorerFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipmarket_fraud_scorer_fallbacks_total",
			Help: "LLM scoring attempts that fell back to the secondary scorer",
		},
	)

	postsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipmarket_posts_submitted_total",
			Help: "Posts accepted for measurement by platform",
		},
		[]string{"platform"},
	)

	contractTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipmarket_contract_transitions_total",
			Help: "Contract status changes",
		},
		[]string{"status"},
	)

	twoFactorVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipmarket_two_factor_verifications_total",
			Help: "Second-factor checks by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipmarket_jobs_processed_total",
			Help: "Background jobs handled by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

func ObserveFraudScore(scorer string, score float64) {
	fraudScores.WithLabelValues(scorer).Observe(score)
}

func ScorerFallback() { scorerFallbacks.Inc() }

func PostSubmitted(platform string) { postsSubmitted.WithLabelValues(platform).Inc() }

func ContractTransition(status string) { contractTransitions.WithLabelValues(status).Inc() }

func TwoFactorVerification(method, outcome string) {
	twoFactorVerifications.WithLabelValues(method, outcome).Inc()
}

func JobProcessed(typ, outcome string) { jobsProcessed.WithLabelValues(typ, outcome).Inc() }
