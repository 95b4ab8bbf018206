// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"time"
)

// MaterialType identifies a renovation material inferred from detection.
type MaterialType string

const (
	MaterialWood           MaterialType = "wood"
	MaterialGranite        MaterialType = "granite"
	MaterialTile           MaterialType = "tile"
	MaterialStainlessSteel MaterialType = "stainless_steel"
	MaterialVinyl          MaterialType = "vinyl"
	MaterialLaminate       MaterialType = "laminate"
	MaterialUnknown        MaterialType = "unknown"
)

// IsValid returns true if the MaterialType is a known value.
func (m MaterialType) IsValid() bool {
	switch m {
	case MaterialWood, MaterialGranite, MaterialTile, MaterialStainlessSteel,
		MaterialVinyl, MaterialLaminate, MaterialUnknown:
		return true
	default:
		return false
	}
}

// MaterialGrade selects the quality tier used for cost estimation.
type MaterialGrade string

const (
	GradeEconomy  MaterialGrade = "economy"
	GradeStandard MaterialGrade = "standard"
	GradePremium  MaterialGrade = "premium"
)

// ParseGrade normalizes a grade string, defaulting to standard.
func ParseGrade(s string) (MaterialGrade, error) {
	switch MaterialGrade(s) {
	case GradeEconomy, GradeStandard, GradePremium:
		return MaterialGrade(s), nil
	case "":
		return GradeStandard, nil
	default:
		return GradeStandard, fmt.Errorf("unknown material grade: %q", s)
	}
}

// DetectedObject is a single object found in a kitchen photo.
// BBox is [x, y, w, h] in pixels.
type DetectedObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	BBox       [4]int  `json:"bbox"`
}

// PixelArea returns the bounding-box area in pixels.
func (o DetectedObject) PixelArea() float64 {
	return float64(o.BBox[2]) * float64(o.BBox[3])
}

// MaterialInfo describes a material surface inferred from detection.
type MaterialInfo struct {
	Material MaterialType `json:"material_type"`
	AreaSqm  float64      `json:"area_sqm"`
	Location string       `json:"location"`
}

// Measurements summarizes kitchen geometry derived from detected objects.
type Measurements struct {
	TotalKitchenArea float64 `json:"total_kitchen_area"`
	CabinetArea      float64 `json:"cabinet_area"`
	CountertopArea   float64 `json:"countertop_area"`
	FlooringArea     float64 `json:"flooring_area"`
	ApplianceCount   int     `json:"appliance_count"`
}

// SceneAnalysis is the vision agent's full output for one photo.
type SceneAnalysis struct {
	ImageRef        string           `json:"image_ref"`
	DetectedObjects []DetectedObject `json:"detected_objects"`
	Materials       []MaterialInfo   `json:"materials"`
	Measurements    Measurements     `json:"measurements"`
	Narrative       string           `json:"narrative"`
	Status          string           `json:"status"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
}

// MaterialCosts breaks material spend down per material type, in AUD.
type MaterialCosts struct {
	StainlessSteel    float64 `json:"stainless_steel"`
	Wood              float64 `json:"wood"`
	Granite           float64 `json:"granite"`
	Tile              float64 `json:"tile"`
	TotalMaterialCost float64 `json:"total_material_cost"`
}

// LaborCosts breaks installation labor down per trade, in AUD.
type LaborCosts struct {
	KitchenCabinets    float64 `json:"kitchen_cabinets"`
	GraniteCountertops float64 `json:"granite_countertops"`
	TileFlooring       float64 `json:"tile_flooring"`
	Appliances         float64 `json:"appliances"`
	TotalLaborCost     float64 `json:"total_labor_cost"`
}

// Contingency is the buffer added on top of materials and labor.
type Contingency struct {
	Percentage int     `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// BudgetRange bounds the estimate.
type BudgetRange struct {
	LowerLimit float64 `json:"lower_limit"`
	UpperLimit float64 `json:"upper_limit"`
}

// CostBreakdown is the canonical estimate structure, all values in AUD.
type CostBreakdown struct {
	MaterialCosts      MaterialCosts `json:"material_costs"`
	LaborCosts         LaborCosts    `json:"labor_costs"`
	Contingency        Contingency   `json:"contingency"`
	FinalProjectTotal  float64       `json:"final_project_total"`
	CostPerSquareMetre float64       `json:"cost_per_square_metre"`
	BudgetRange        BudgetRange   `json:"budget_range"`
}

// consistencyTolerance allows for rounding when cross-checking totals.
const consistencyTolerance = 0.5

// Validate checks the invariants every estimate must satisfy: no negative
// currency values, and the project total consistent with its parts.
func (b *CostBreakdown) Validate() error {
	values := map[string]float64{
		"material_costs.total_material_cost": b.MaterialCosts.TotalMaterialCost,
		"labor_costs.total_labor_cost":       b.LaborCosts.TotalLaborCost,
		"contingency.amount":                 b.Contingency.Amount,
		"final_project_total":                b.FinalProjectTotal,
		"cost_per_square_metre":              b.CostPerSquareMetre,
		"budget_range.lower_limit":           b.BudgetRange.LowerLimit,
		"budget_range.upper_limit":           b.BudgetRange.UpperLimit,
	}
	for field, v := range values {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %.2f", field, v)
		}
	}

	if b.BudgetRange.UpperLimit < b.BudgetRange.LowerLimit {
		return fmt.Errorf("budget_range upper limit %.2f below lower limit %.2f",
			b.BudgetRange.UpperLimit, b.BudgetRange.LowerLimit)
	}

	sum := b.MaterialCosts.TotalMaterialCost + b.LaborCosts.TotalLaborCost + b.Contingency.Amount
	if diff := b.FinalProjectTotal - sum; diff > consistencyTolerance || diff < -consistencyTolerance {
		return fmt.Errorf("final_project_total %.2f does not match materials+labor+contingency %.2f",
			b.FinalProjectTotal, sum)
	}

	return nil
}

// Summary flattens the breakdown into the standardized shape UI clients
// consume.
func (b *CostBreakdown) Summary() CostSummary {
	return CostSummary{
		TotalCost:       b.FinalProjectTotal,
		MaterialCost:    b.MaterialCosts.TotalMaterialCost,
		LaborCost:       b.LaborCosts.TotalLaborCost,
		ContingencyCost: b.Contingency.Amount,
		CostPerSqm:      b.CostPerSquareMetre,
		BudgetMin:       b.BudgetRange.LowerLimit,
		BudgetMax:       b.BudgetRange.UpperLimit,
	}
}

// CostSummary is the flat cost view returned to clients.
type CostSummary struct {
	TotalCost       float64 `json:"total_cost"`
	MaterialCost    float64 `json:"material_cost"`
	LaborCost       float64 `json:"labor_cost"`
	ContingencyCost float64 `json:"contingency_cost"`
	CostPerSqm      float64 `json:"cost_per_sqm"`
	BudgetMin       float64 `json:"budget_min"`
	BudgetMax       float64 `json:"budget_max"`
}

// DisplayCosts carries pre-formatted cost strings for direct display,
// e.g. "$14,348 AUD" or "$12,000 - $16,500 AUD". Produced by the LLM cost
// extractor when structured parsing fails.
type DisplayCosts struct {
	TotalCost       string `json:"total_cost"`
	MaterialCost    string `json:"material_cost"`
	LaborCost       string `json:"labor_cost"`
	ContingencyCost string `json:"contingency_cost"`
	CostPerSqm      string `json:"cost_per_sqm"`
	BudgetRange     string `json:"budget_range"`
	HasValidCosts   bool   `json:"has_valid_costs"`
}

// ZeroDisplayCosts returns the placeholder display values used when no cost
// data could be recovered from an analysis.
func ZeroDisplayCosts() DisplayCosts {
	return DisplayCosts{
		TotalCost:       "$0 AUD",
		MaterialCost:    "$0 AUD",
		LaborCost:       "$0 AUD",
		ContingencyCost: "$0 AUD",
		CostPerSqm:      "$0 AUD",
		BudgetRange:     "$0 - $0 AUD",
	}
}

// EstimateRequest is the payload accepted by the cost agent. IncludeLabor
// left unset means labor is included.
type EstimateRequest struct {
	Materials    []MaterialInfo `json:"materials"`
	Measurements Measurements   `json:"measurements"`
	Grade        MaterialGrade  `json:"grade"`
	IncludeLabor *bool          `json:"include_labor,omitempty"`
}

// EstimateResult is the cost agent's response: the structured breakdown plus
// the per-role narrative outputs from the crew.
type EstimateResult struct {
	Breakdown   CostBreakdown     `json:"cost_breakdown"`
	Grade       MaterialGrade     `json:"grade"`
	RoleReports map[string]string `json:"role_reports,omitempty"`
	EstimatedAt time.Time         `json:"estimated_at"`
}
