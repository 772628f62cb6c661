package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BootstrapOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourneyhub", Name: "bootstrap_outcomes_total", Help: "Session bootstrap transitions by outcome."},
		[]string{"outcome"},
	)
	ActivityQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourneyhub", Name: "activity_queries_total", Help: "Activity log queries by tier and result."},
		[]string{"tier", "result"},
	)
	ActivityStats = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourneyhub", Name: "activity_stats_total", Help: "Activity statistics computations by result."},
		[]string{"result"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourneyhub", Name: "rate_limit_allowed_total", Help: "Control requests allowed by the rate limiter."},
		[]string{"backend"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourneyhub", Name: "rate_limit_rejected_total", Help: "Control requests rejected by the rate limiter."},
		[]string{"backend"},
	)
)

// Bootstrap outcome labels.
const (
	OutcomeProfileFound    = "profile_found"
	OutcomeProfileNotFound = "profile_not_found"
	OutcomeProfileFallback = "profile_fallback"
	OutcomeSignedOut       = "signed_out"
	OutcomeChannelFault    = "channel_fault"
	OutcomeTimeout         = "timeout"
	OutcomeSetupFailed     = "setup_failed"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(BootstrapOutcomes)
	reg.MustRegister(ActivityQueries)
	reg.MustRegister(ActivityStats)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
