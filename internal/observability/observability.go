// Package observability builds the logger and the Prometheus metrics of a
// batch run.
package observability

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rtm0/repeatability/internal/config"
)

// NewLogger returns a slog logger writing to w with the configured level and
// format.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Outcome label values of PairsTotal.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds the counters and histograms of a batch run. Each Metrics has
// its own registry, so runs and tests never collide on registration.
type Metrics struct {
	PairsTotal     *prometheus.CounterVec // labels: outcome={ok,failed}
	PairDuration   prometheus.Histogram
	SamplesDerived prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the run metrics and registers them with a fresh
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PairsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repeatability",
			Name:      "pairs_total",
			Help:      "Site/species pairs processed, by outcome.",
		}, []string{"outcome"}),
		PairDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "repeatability",
			Name:      "pair_duration_seconds",
			Help:      "Duration of staging, deriving and substituting one pair.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SamplesDerived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "repeatability",
			Name:      "samples_derived_total",
			Help:      "Repeatability samples derived from instrument logs.",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.PairsTotal, m.PairDuration, m.SamplesDerived)
	return m
}

// Gatherer exposes the registry holding the run metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics to path in the Prometheus text format,
// for pickup by a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
