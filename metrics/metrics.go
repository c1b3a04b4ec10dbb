// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "floatchat"

// Config configures the instruments.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// LatencyBuckets for duration histograms, in seconds.
	LatencyBuckets []float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
	}
}

// Metrics holds every floatchat instrument on one registry.
type Metrics struct {
	registry *prometheus.Registry

	ingestFiles     *prometheus.CounterVec
	ingestRows      prometheus.Counter
	ingestInserted  prometheus.Counter
	ingestFileTime  prometheus.Histogram
	ingestBatchTime prometheus.Histogram

	searchRequests       *prometheus.CounterVec
	searchFilterFailures prometheus.Counter
	searchCandidates     prometheus.Histogram
	searchMatches        prometheus.Histogram

	rebuildFloats      prometheus.Gauge
	rebuildLastSuccess prometheus.Gauge

	answers       *prometheus.CounterVec
	answerLatency *prometheus.HistogramVec
}

// New creates and registers the instruments.
func New(cfg Config) *Metrics {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{registry: registry}

	m.ingestFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Source files processed, by final status and outcome",
		},
		[]string{"status", "outcome"},
	)
	m.ingestRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "rows_total",
		Help:      "Cleaned rows submitted to the relational store",
	})
	m.ingestInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "profiles_inserted_total",
		Help:      "Profiles newly stored and indexed",
	})
	m.ingestFileTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "file_duration_seconds",
		Help:      "Time spent on one source file",
		Buckets:   cfg.LatencyBuckets,
	})
	m.ingestBatchTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "batch_duration_seconds",
		Help:      "Time spent committing one batch",
		Buckets:   cfg.LatencyBuckets,
	})

	m.searchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Retrievals, by whether a filter was applied",
		},
		[]string{"filtered"},
	)
	m.searchFilterFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "filter_extraction_failures_total",
		Help:      "Filter extractions that fell back to an unfiltered search",
	})
	m.searchCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "candidates",
		Help:      "Profiles selected by the structured pre-filter",
		Buckets:   []float64{0, 1, 10, 50, 100, 250, 500, 1000},
	})
	m.searchMatches = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "matches",
		Help:      "Profiles returned per retrieval",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})

	m.rebuildFloats = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rebuild",
		Name:      "floats",
		Help:      "Floats in the most recently built float index",
	})
	m.rebuildLastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rebuild",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful float index rebuild",
	})

	m.answers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "answers_total",
			Help:      "Answer requests, by model and status",
		},
		[]string{"model", "status"},
	)
	m.answerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "answer_latency_seconds",
			Help:      "End-to-end answer latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model"},
	)

	registry.MustRegister(
		m.ingestFiles,
		m.ingestRows,
		m.ingestInserted,
		m.ingestFileTime,
		m.ingestBatchTime,
		m.searchRequests,
		m.searchFilterFailures,
		m.searchCandidates,
		m.searchMatches,
		m.rebuildFloats,
		m.rebuildLastSuccess,
		m.answers,
		m.answerLatency,
	)

	return m
}

// RecordRebuild records a completed float index rebuild.
func (m *Metrics) RecordRebuild(floats int, finished time.Time) {
	m.rebuildFloats.Set(float64(floats))
	m.rebuildLastSuccess.Set(float64(finished.Unix()))
}

// RecordAnswer records one answer request.
func (m *Metrics) RecordAnswer(model string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.answers.WithLabelValues(model, status).Inc()
	m.answerLatency.WithLabelValues(model).Observe(latency.Seconds())
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
