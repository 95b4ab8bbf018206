// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"fmt"
	"math"

	"renoscope/platform/shared/types"
)

// BuildBreakdown computes the deterministic cost breakdown for an estimate
// request. Material spend comes from the rate table at the requested grade,
// labor from the midpoint of each trade's rate band applied to the measured
// surfaces, contingency on top of both, and the budget range brackets the
// final total.
func BuildBreakdown(req types.EstimateRequest, rates RateTable) (types.CostBreakdown, error) {
	grade := req.Grade
	if grade == "" {
		grade = types.GradeStandard
	}

	var materials types.MaterialCosts
	for _, m := range req.Materials {
		if m.AreaSqm < 0 {
			return types.CostBreakdown{}, fmt.Errorf("material %s has negative area %.2f", m.Material, m.AreaSqm)
		}
		rate, ok := rates.Rate(m.Material, grade)
		if !ok {
			continue
		}
		spend := round2(m.AreaSqm * rate)

		switch m.Material {
		case types.MaterialStainlessSteel:
			materials.StainlessSteel += spend
		case types.MaterialWood:
			materials.Wood += spend
		case types.MaterialGranite:
			materials.Granite += spend
		case types.MaterialTile, types.MaterialVinyl, types.MaterialLaminate:
			// Alternative floor coverings report under the tile line.
			materials.Tile += spend
		}
	}
	materials.TotalMaterialCost = round2(materials.StainlessSteel + materials.Wood + materials.Granite + materials.Tile)

	var labor types.LaborCosts
	if req.IncludeLabor == nil || *req.IncludeLabor {
		labor.KitchenCabinets = round2(rates.Labor.Cabinets.Mid() * req.Measurements.CabinetArea)
		labor.GraniteCountertops = round2(rates.Labor.Granite.Mid() * req.Measurements.CountertopArea)
		labor.TileFlooring = round2(rates.Labor.Tile.Mid() * req.Measurements.FlooringArea)
		labor.Appliances = round2(rates.Labor.Appliances.Mid() * float64(req.Measurements.ApplianceCount))
		labor.TotalLaborCost = round2(labor.KitchenCabinets + labor.GraniteCountertops + labor.TileFlooring + labor.Appliances)
	}

	subtotal := materials.TotalMaterialCost + labor.TotalLaborCost
	contingency := types.Contingency{
		Percentage: rates.ContingencyPercentage,
		Amount:     round2(subtotal * float64(rates.ContingencyPercentage) / 100),
	}

	total := round2(subtotal + contingency.Amount)

	costPerSqm := 0.0
	if req.Measurements.TotalKitchenArea > 0 {
		costPerSqm = round2(total / req.Measurements.TotalKitchenArea)
	}

	margin := float64(rates.BudgetMarginPercent) / 100
	breakdown := types.CostBreakdown{
		MaterialCosts:      materials,
		LaborCosts:         labor,
		Contingency:        contingency,
		FinalProjectTotal:  total,
		CostPerSquareMetre: costPerSqm,
		BudgetRange: types.BudgetRange{
			LowerLimit: round2(total * (1 - margin)),
			UpperLimit: round2(total * (1 + margin)),
		},
	}

	if err := breakdown.Validate(); err != nil {
		return types.CostBreakdown{}, fmt.Errorf("computed breakdown failed validation: %w", err)
	}
	return breakdown, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
