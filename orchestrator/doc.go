// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator runs the kitchen renovation analysis pipeline and
// exposes it over HTTP. A request flows through five sequential stages:
// detect (vision agent), estimate (cost agent), recommend, extract display
// costs, and synthesize a final report. Later stages degrade to partial
// results instead of failing the whole request. Results are cached in Redis,
// every stage is audited to Postgres, and metrics are published both as a
// JSON snapshot and through Prometheus.
package orchestrator
