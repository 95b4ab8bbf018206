// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package types provides shared type definitions used across RenoScope
// services: detection results produced by the vision agent, material and
// measurement data, and the canonical cost breakdown exchanged between the
// cost agent and the orchestrator.
package types
