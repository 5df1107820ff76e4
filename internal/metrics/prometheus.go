package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ComparisonDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecolens_comparison_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provenance"},
	)

	ComparisonTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecolens_comparison_total",
			Help: "Total pipeline runs by outcome and provenance",
		},
		[]string{"status", "provenance"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecolens_stage_failures_total",
			Help: "Live-path stage failures by stage",
		},
		[]string{"stage"},
	)

	EvidenceRetrieved = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecolens_evidence_retrieved",
			Help:    "Evidence items retrieved per live run",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	HistorySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecolens_session_history_size",
			Help: "Records held in the session history",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		ComparisonDuration,
		ComparisonTotal,
		StageFailures,
		EvidenceRetrieved,
		HistorySize,
	)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
