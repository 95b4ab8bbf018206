// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package logger provides structured JSON logging for RenoScope services.
// Every entry carries the emitting component, the deployment instance, and
// the request ID so a single analysis can be traced across the orchestrator
// and both agents.
package logger
