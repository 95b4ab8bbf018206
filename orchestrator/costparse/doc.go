// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package costparse recovers structured cost breakdowns from model output
// text. Agents are prompted to emit a canonical JSON breakdown, but in
// practice responses arrive in several shapes: fenced ```json blocks, inline
// COST_DATA_JSON payloads, the legacy single-value schema, and a newer schema
// that reports lower/upper bounds for each figure. The parser tries each
// recognizer in order and returns the first usable result.
package costparse
