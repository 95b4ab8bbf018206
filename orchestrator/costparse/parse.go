// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package costparse

import (
	"encoding/json"
	"regexp"

	"renoscope/platform/shared/types"
)

var (
	fencedJSONRe = regexp.MustCompile("(?i)```json\\s*([\\s\\S]*?)\\s*```")
	inlineJSONRe = regexp.MustCompile(`COST_DATA_JSON:\s*(\{[^}]+\})`)
)

// ExtractJSONBlocks returns every candidate JSON payload in the text: fenced
// ```json blocks first, then inline COST_DATA_JSON payloads.
func ExtractJSONBlocks(text string) []string {
	var blocks []string
	for _, m := range fencedJSONRe.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, m[1])
	}
	for _, m := range inlineJSONRe.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// ParseCosts extracts a standardized cost summary from model output text.
// The first JSON block that yields usable cost data wins. Returns false when
// no block could be interpreted.
func ParseCosts(text string) (*types.CostSummary, bool) {
	for _, block := range ExtractJSONBlocks(text) {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(block), &raw); err != nil {
			continue
		}

		if root, ok := raw["cost_breakdown"].(map[string]interface{}); ok {
			if summary, ok := fromCostBreakdown(root); ok {
				return summary, true
			}
			if summary, ok := decodeLegacy([]byte(block)); ok {
				return summary, true
			}
			continue
		}

		// Newer agents emit the range-bound schema at the top level.
		if summary, ok := decodeRangeBound([]byte(block)); ok {
			return summary, true
		}

		// Last resort: treat the payload as a bare legacy breakdown.
		wrapped, err := json.Marshal(map[string]interface{}{"cost_breakdown": raw})
		if err != nil {
			continue
		}
		if summary, ok := decodeLegacy(wrapped); ok {
			return summary, true
		}
	}

	return nil, false
}

// fromCostBreakdown tolerates the nested shapes agents produce in the wild:
// per-item material maps, low_end/high_end labor splits, and bound pairs for
// totals. It succeeds when at least one of material, labor, or total cost is
// non-zero.
func fromCostBreakdown(root map[string]interface{}) (*types.CostSummary, bool) {
	materialCost := 0.0
	if mat, ok := root["material_costs"].(map[string]interface{}); ok {
		materialCost = asFloat(mat["total_material_cost"])
		if materialCost == 0 {
			// Sum nested entries shaped like {"granite": {"total_cost": N}}
			sum, found := 0.0, false
			for _, v := range mat {
				if entry, ok := v.(map[string]interface{}); ok {
					if cost, exists := entry["total_cost"]; exists {
						sum += asFloat(cost)
						found = true
					}
				}
			}
			if found {
				materialCost = sum
			}
		}
	}

	laborCost := 0.0
	if lab, ok := root["labor_costs"].(map[string]interface{}); ok {
		if _, exists := lab["total_labor_cost"]; exists {
			laborCost = asFloat(lab["total_labor_cost"])
		} else {
			var low, high float64
			if le, ok := lab["low_end"].(map[string]interface{}); ok {
				low = asFloat(le["total_low_end_labor_cost"])
			}
			if he, ok := lab["high_end"].(map[string]interface{}); ok {
				high = asFloat(he["total_high_end_labor_cost"])
			}
			laborCost = midOrMax(low, high)
		}
	}

	totalCost := 0.0
	switch ft := root["final_project_total"].(type) {
	case float64:
		totalCost = ft
	case map[string]interface{}:
		lo := asFloat(ft["low_end"])
		if lo == 0 {
			lo = asFloat(ft["minimum"])
		}
		hi := asFloat(ft["high_end"])
		if hi == 0 {
			hi = asFloat(ft["maximum"])
		}
		totalCost = midOrMax(lo, hi)
	}

	contingency := 0.0
	if cont, ok := root["contingency"].(map[string]interface{}); ok {
		if _, exists := cont["amount"]; exists {
			contingency = asFloat(cont["amount"])
		} else if hasAny(cont, "lower_bound", "upper_bound") {
			contingency = midOrMax(asFloat(cont["lower_bound"]), asFloat(cont["upper_bound"]))
		}
	}

	costPerSqm := 0.0
	switch cpsm := root["cost_per_square_metre"].(type) {
	case float64:
		costPerSqm = cpsm
	case map[string]interface{}:
		costPerSqm = midOrMax(asFloat(cpsm["lower_bound"]), asFloat(cpsm["upper_bound"]))
	}

	budgetMin, budgetMax := 0.0, 0.0
	if br, ok := root["budget_range"].(map[string]interface{}); ok {
		budgetMin = asFloat(br["lower_bound"])
		budgetMax = asFloat(br["upper_bound"])
	}

	// Recompute the total from its parts when the block omitted it.
	if totalCost == 0 && (materialCost != 0 || laborCost != 0 || contingency != 0) {
		totalCost = materialCost + laborCost + contingency
	}

	if materialCost == 0 && laborCost == 0 && totalCost == 0 {
		return nil, false
	}

	return &types.CostSummary{
		TotalCost:       totalCost,
		MaterialCost:    materialCost,
		LaborCost:       laborCost,
		ContingencyCost: contingency,
		CostPerSqm:      costPerSqm,
		BudgetMin:       budgetMin,
		BudgetMax:       budgetMax,
	}, true
}

// legacyEstimate is the strict canonical schema. Pointer fields distinguish
// absent from zero so required fields can be enforced.
type legacyEstimate struct {
	CostBreakdown *struct {
		MaterialCosts *struct {
			TotalMaterialCost *float64 `json:"total_material_cost"`
		} `json:"material_costs"`
		LaborCosts *struct {
			TotalLaborCost *float64 `json:"total_labor_cost"`
		} `json:"labor_costs"`
		Contingency *struct {
			Amount *float64 `json:"amount"`
		} `json:"contingency"`
		FinalProjectTotal  *float64 `json:"final_project_total"`
		CostPerSquareMetre *float64 `json:"cost_per_square_metre"`
		BudgetRange        *struct {
			LowerLimit *float64 `json:"lower_limit"`
			UpperLimit *float64 `json:"upper_limit"`
		} `json:"budget_range"`
	} `json:"cost_breakdown"`
}

func decodeLegacy(data []byte) (*types.CostSummary, bool) {
	var est legacyEstimate
	if err := json.Unmarshal(data, &est); err != nil {
		return nil, false
	}

	b := est.CostBreakdown
	if b == nil || b.MaterialCosts == nil || b.MaterialCosts.TotalMaterialCost == nil ||
		b.LaborCosts == nil || b.LaborCosts.TotalLaborCost == nil ||
		b.Contingency == nil || b.Contingency.Amount == nil ||
		b.FinalProjectTotal == nil || b.CostPerSquareMetre == nil ||
		b.BudgetRange == nil || b.BudgetRange.LowerLimit == nil || b.BudgetRange.UpperLimit == nil {
		return nil, false
	}

	return &types.CostSummary{
		TotalCost:       *b.FinalProjectTotal,
		MaterialCost:    *b.MaterialCosts.TotalMaterialCost,
		LaborCost:       *b.LaborCosts.TotalLaborCost,
		ContingencyCost: *b.Contingency.Amount,
		CostPerSqm:      *b.CostPerSquareMetre,
		BudgetMin:       *b.BudgetRange.LowerLimit,
		BudgetMax:       *b.BudgetRange.UpperLimit,
	}, true
}

// rangeBoundEstimate is the newer agent output: every figure is reported as
// a lower/upper bound pair and the summary uses the midpoint.
type rangeBoundEstimate struct {
	MaterialCosts *struct {
		Total *float64 `json:"total"`
	} `json:"total_material_costs"`
	LaborCosts *struct {
		LowerBound *float64 `json:"lower_bound"`
		UpperBound *float64 `json:"upper_bound"`
	} `json:"total_labor_costs"`
	Contingency *struct {
		Percentage int      `json:"percentage"`
		LowerBound *float64 `json:"lower_bound"`
		UpperBound *float64 `json:"upper_bound"`
	} `json:"contingency"`
	FinalProjectTotal *struct {
		LowerBound *float64 `json:"lower_bound"`
		UpperBound *float64 `json:"upper_bound"`
	} `json:"final_project_total"`
	CostPerSquareMetre *struct {
		TotalArea  *float64 `json:"total_area"`
		LowerBound *float64 `json:"lower_bound"`
		UpperBound *float64 `json:"upper_bound"`
	} `json:"cost_per_square_metre"`
	BudgetRange *struct {
		LowerBound *float64 `json:"lower_bound"`
		UpperBound *float64 `json:"upper_bound"`
	} `json:"budget_range"`
}

func decodeRangeBound(data []byte) (*types.CostSummary, bool) {
	var est rangeBoundEstimate
	if err := json.Unmarshal(data, &est); err != nil {
		return nil, false
	}

	if est.MaterialCosts == nil || est.MaterialCosts.Total == nil ||
		est.LaborCosts == nil || est.LaborCosts.LowerBound == nil || est.LaborCosts.UpperBound == nil ||
		est.FinalProjectTotal == nil || est.FinalProjectTotal.LowerBound == nil || est.FinalProjectTotal.UpperBound == nil {
		return nil, false
	}

	summary := &types.CostSummary{
		MaterialCost: *est.MaterialCosts.Total,
		LaborCost:    (*est.LaborCosts.LowerBound + *est.LaborCosts.UpperBound) / 2,
		TotalCost:    (*est.FinalProjectTotal.LowerBound + *est.FinalProjectTotal.UpperBound) / 2,
	}

	if c := est.Contingency; c != nil && c.LowerBound != nil && c.UpperBound != nil {
		summary.ContingencyCost = (*c.LowerBound + *c.UpperBound) / 2
	}
	if c := est.CostPerSquareMetre; c != nil && c.LowerBound != nil && c.UpperBound != nil {
		summary.CostPerSqm = (*c.LowerBound + *c.UpperBound) / 2
	}
	if b := est.BudgetRange; b != nil {
		if b.LowerBound != nil {
			summary.BudgetMin = *b.LowerBound
		}
		if b.UpperBound != nil {
			summary.BudgetMax = *b.UpperBound
		}
	}

	return summary, true
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// midOrMax averages a bound pair when both are present, otherwise returns
// whichever side was reported.
func midOrMax(lo, hi float64) float64 {
	if lo != 0 && hi != 0 {
		return (lo + hi) / 2
	}
	if lo > hi {
		return lo
	}
	return hi
}

func hasAny(m map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
