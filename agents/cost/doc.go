// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package cost implements the renovation cost agent. A sequential three-role
// crew (materials expert, labor analyst, cost synthesizer) produces narrative
// analysis over an LLM provider, while the cost arithmetic itself is computed
// from deterministic rate tables so estimates are reproducible. Rates are
// AUD-denominated and overridable from a YAML file.
package cost
