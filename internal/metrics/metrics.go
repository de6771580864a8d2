// Package metrics holds the Prometheus collectors of a chat session and an
// optional scrape endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeStopped   = "stopped"
	OutcomeError     = "error"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glmchat",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by outcome",
		},
		[]string{"outcome"},
	)

	clearsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glmchat",
			Subsystem: "chat",
			Name:      "clears_total",
			Help:      "History resets requested with clear",
		},
	)

	streamStepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glmchat",
			Subsystem: "chat",
			Name:      "stream_steps_total",
			Help:      "Streamed generation steps received",
		},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "glmchat",
			Subsystem: "chat",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of one streamed response",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"outcome"},
	)

	promptTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "glmchat",
			Subsystem: "chat",
			Name:      "query_tokens",
			Help:      "Tokens per user query",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 10),
		},
	)

	modelLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "glmchat",
			Subsystem: "model",
			Name:      "load_duration_seconds",
			Help:      "Time to load model and tokenizer",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"strategy", "backend"},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, clearsTotal, streamStepsTotal, generationDuration, promptTokens, modelLoadDuration)
}

// ObserveTurn records a finished turn with its step count and duration.
func ObserveTurn(outcome string, steps int, d time.Duration) {
	if outcome == "" {
		outcome = OutcomeCompleted
	}
	turnsTotal.WithLabelValues(outcome).Inc()
	streamStepsTotal.Add(float64(steps))
	generationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncClear counts one history reset.
func IncClear() { clearsTotal.Inc() }

// ObserveQueryTokens records the token length of a query.
func ObserveQueryTokens(n int) {
	if n < 0 {
		return
	}
	promptTokens.Observe(float64(n))
}

// ObserveModelLoad records how long startup acquisition took.
func ObserveModelLoad(strategy, backend string, d time.Duration) {
	modelLoadDuration.WithLabelValues(strategy, backend).Observe(d.Seconds())
}
