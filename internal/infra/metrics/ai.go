package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiGenerationsTotal,
		aiGenerationLatencyMs,
		aiGenerationRetries,
		aiInFlight,
	)
}

var (
	aiGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generations_total",
			Help: "Metadata generation calls per provider/platform and outcome.",
		},
		[]string{"provider", "platform", "success"},
	)

	aiGenerationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_generation_latency_ms",
			Help:    "Metadata generation latency distribution in milliseconds, retries included.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 64000},
		},
		[]string{"provider", "platform", "success"},
	)

	aiGenerationRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generation_retries_total",
			Help: "Retries issued after transient provider failures.",
		},
		[]string{"provider"},
	)

	aiInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_requests_in_flight",
			Help: "Provider requests currently holding a concurrency slot.",
		},
		[]string{"provider"},
	)
)

func ObserveGeneration(provider, platform string, latency time.Duration, success bool) {
	lbl := []string{norm(provider), norm(platform), strconv.FormatBool(success)}
	aiGenerationsTotal.WithLabelValues(lbl...).Inc()
	aiGenerationLatencyMs.WithLabelValues(lbl...).Observe(float64(latency / time.Millisecond))
}

func IncRetry(provider string) {
	aiGenerationRetries.WithLabelValues(norm(provider)).Inc()
}

func AddInFlight(provider string, delta float64) {
	aiInFlight.WithLabelValues(norm(provider)).Add(delta)
}
