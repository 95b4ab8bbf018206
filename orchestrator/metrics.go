// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promAnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renoscope_orchestrator_analyses_total",
			Help: "Total number of analyses processed by the orchestrator",
		},
		[]string{"status"},
	)
	promStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renoscope_orchestrator_stage_duration_milliseconds",
			Help:    "Pipeline stage duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"stage"},
	)
	promStageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renoscope_orchestrator_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		},
		[]string{"stage"},
	)
	promAgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renoscope_orchestrator_agent_calls_total",
			Help: "Total number of agent HTTP calls",
		},
		[]string{"agent", "status"},
	)
)

func init() {
	prometheus.MustRegister(promAnalysesTotal)
	prometheus.MustRegister(promStageDuration)
	prometheus.MustRegister(promStageFailures)
	prometheus.MustRegister(promAgentCalls)
}

// StageMetrics aggregates one pipeline stage for the JSON metrics snapshot.
type StageMetrics struct {
	TotalRuns    int64   `json:"total_runs"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
	SkippedCount int64   `json:"skipped_count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// MetricsSnapshot is the JSON payload served at /metrics.
type MetricsSnapshot struct {
	UptimeSeconds     int64                    `json:"uptime_seconds"`
	TotalAnalyses     int64                    `json:"total_analyses"`
	CompletedAnalyses int64                    `json:"completed_analyses"`
	PartialAnalyses   int64                    `json:"partial_analyses"`
	FailedAnalyses    int64                    `json:"failed_analyses"`
	StageMetrics      map[string]*StageMetrics `json:"stage_metrics"`
	CollectedAt       time.Time                `json:"collected_at"`
}

// MetricsCollector aggregates per-stage and per-analysis counters, feeding
// both the JSON snapshot and the Prometheus registry.
type MetricsCollector struct {
	mu        sync.RWMutex
	startTime time.Time

	totalAnalyses     int64
	completedAnalyses int64
	partialAnalyses   int64
	failedAnalyses    int64

	stages map[string]*StageMetrics
}

// NewMetricsCollector starts an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime: time.Now(),
		stages:    make(map[string]*StageMetrics),
	}
}

// RecordAnalysis records one finished analysis and its stage results.
func (c *MetricsCollector) RecordAnalysis(status string, stages []StageResult) {
	promAnalysesTotal.WithLabelValues(status).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalAnalyses++
	switch status {
	case StatusCompleted:
		c.completedAnalyses++
	case StatusPartial:
		c.partialAnalyses++
	case StatusFailed:
		c.failedAnalyses++
	}

	for _, stage := range stages {
		sm, ok := c.stages[stage.Name]
		if !ok {
			sm = &StageMetrics{}
			c.stages[stage.Name] = sm
		}
		sm.TotalRuns++
		switch stage.Status {
		case StatusCompleted, StatusPartial:
			sm.SuccessCount++
		case StatusFailed:
			sm.FailureCount++
			promStageFailures.WithLabelValues(stage.Name).Inc()
		default:
			sm.SkippedCount++
		}
		if stage.Status != "skipped" {
			promStageDuration.WithLabelValues(stage.Name).Observe(float64(stage.DurationMS))
			// Running average over completed and failed runs.
			ran := sm.SuccessCount + sm.FailureCount
			if ran > 0 {
				sm.AvgLatencyMS += (float64(stage.DurationMS) - sm.AvgLatencyMS) / float64(ran)
			}
		}
	}
}

// RecordAgentCall records the outcome of a single agent HTTP call.
func (c *MetricsCollector) RecordAgentCall(agent, status string) {
	promAgentCalls.WithLabelValues(agent, status).Inc()
}

// Snapshot returns a copy of the collected metrics for the JSON endpoint.
func (c *MetricsCollector) Snapshot() MetricsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stages := make(map[string]*StageMetrics, len(c.stages))
	for name, sm := range c.stages {
		copied := *sm
		stages[name] = &copied
	}

	return MetricsSnapshot{
		UptimeSeconds:     int64(time.Since(c.startTime).Seconds()),
		TotalAnalyses:     c.totalAnalyses,
		CompletedAnalyses: c.completedAnalyses,
		PartialAnalyses:   c.partialAnalyses,
		FailedAnalyses:    c.failedAnalyses,
		StageMetrics:      stages,
		CollectedAt:       time.Now().UTC(),
	}
}
