package popularity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	usagesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emote_usages_flushed_total",
			Help: "Usage events drained from the queue and applied to scores",
		},
	)

	flushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emote_usage_flush_failures_total",
			Help: "Usage flushes that failed to drain or apply",
		},
	)

	decayRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emote_decay_runs_total",
			Help: "Decay ticks by result",
		},
		[]string{"result"},
	)

	decayedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emote_decayed_rows_total",
			Help: "Scores lowered by decay ticks",
		},
	)
)
