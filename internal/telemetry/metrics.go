// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer
// shared across the recommendation pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRegistry holds all Prometheus metrics for the engine.
type MetricsRegistry struct {
	// Per-stage pipeline timings
	StageDuration *prometheus.HistogramVec

	// Analysis throughput
	AnalysesTotal  prometheus.Counter
	AnalysisErrors *prometheus.CounterVec

	// Rule engine
	RulesFired      *prometheus.CounterVec
	Recommendations *prometheus.CounterVec

	// Simulation cache
	SimCacheHits   prometheus.Counter
	SimCacheMisses prometheus.Counter
	SimTrials      prometheus.Counter

	// Model overlay
	ModelPredictions *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsRegistry creates the full metric set on a fresh registry.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulseplan_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"stage"},
		),

		AnalysesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulseplan_analyses_total",
				Help: "Total number of analyses run",
			},
		),

		AnalysisErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseplan_analysis_errors_total",
				Help: "Total analysis failures by stage",
			},
			[]string{"stage"},
		),

		RulesFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseplan_rules_fired_total",
				Help: "Total rule firings by rule id",
			},
			[]string{"rule"},
		),

		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseplan_recommendations_total",
				Help: "Recommendations returned by type and priority",
			},
			[]string{"type", "priority"},
		),

		SimCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulseplan_sim_cache_hits_total",
				Help: "Simulation cache hits",
			},
		),

		SimCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulseplan_sim_cache_misses_total",
				Help: "Simulation cache misses",
			},
		),

		SimTrials: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulseplan_sim_trials_total",
				Help: "Total Monte Carlo trials executed",
			},
		),

		ModelPredictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseplan_model_predictions_total",
				Help: "Model overlay predictions by result (applied, rejected, error)",
			},
			[]string{"result"},
		),

		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.StageDuration,
		m.AnalysesTotal,
		m.AnalysisErrors,
		m.RulesFired,
		m.Recommendations,
		m.SimCacheHits,
		m.SimCacheMisses,
		m.SimTrials,
		m.ModelPredictions,
	)

	return m
}

// Registry exposes the underlying registry for scrape handlers.
func (m *MetricsRegistry) Registry() *prometheus.Registry {
	return m.registry
}
