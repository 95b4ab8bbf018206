// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"renoscope/platform/shared/types"
)

const (
	economyCostPerSqm = 1000.0
	premiumCostPerSqm = 500.0
	largeGraniteSqm   = 10.0
	smallCabinetSqm   = 10.0
)

// Recommendations derives renovation advice from the analyzed scene and the
// finished cost breakdown. The rules are deterministic so the same analysis
// always yields the same advice. Breakdown may be nil when the estimate
// stage failed; the material and space rules still apply.
func Recommendations(analysis *types.SceneAnalysis, breakdown *types.CostBreakdown) []string {
	var recs []string
	if analysis == nil {
		return recs
	}

	if breakdown != nil {
		costPerSqm := breakdown.CostPerSquareMetre
		if costPerSqm == 0 && analysis.Measurements.TotalKitchenArea > 0 {
			costPerSqm = breakdown.FinalProjectTotal / analysis.Measurements.TotalKitchenArea
		}
		if costPerSqm > economyCostPerSqm {
			recs = append(recs, "Consider economy grade materials to reduce costs")
		} else if costPerSqm < premiumCostPerSqm {
			recs = append(recs, "Budget allows for premium material upgrades")
		}
	}

	var graniteArea float64
	for _, m := range analysis.Materials {
		if m.Material == types.MaterialGranite {
			graniteArea += m.AreaSqm
		}
	}
	if graniteArea > largeGraniteSqm {
		recs = append(recs, "Large granite area detected - consider quartz alternatives for cost savings")
	}

	if analysis.Measurements.CabinetArea < smallCabinetSqm {
		recs = append(recs, "Consider additional storage solutions for better kitchen functionality")
	}
	return recs
}
