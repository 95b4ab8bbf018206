// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package vision implements the kitchen vision agent. It detects appliances
// and surfaces in a kitchen photo, infers materials and measurements from the
// detections, and asks an LLM for a renovation-expert narrative. Detection
// runs against a remote YOLO-style inference endpoint when one is configured,
// with a deterministic heuristic fallback for development.
package vision
