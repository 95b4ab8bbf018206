// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"renoscope/platform/shared/types"
)

// LaborRange is an hourly-trade installation rate band in AUD.
type LaborRange struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Mid returns the midpoint used for deterministic estimates.
func (r LaborRange) Mid() float64 {
	return (r.Low + r.High) / 2
}

// LaborRates are per-trade installation rates. The first three are AUD per
// square metre; appliances are AUD per unit.
type LaborRates struct {
	Cabinets   LaborRange `yaml:"cabinets"`
	Granite    LaborRange `yaml:"granite"`
	Tile       LaborRange `yaml:"tile"`
	Appliances LaborRange `yaml:"appliances"`
}

// RateTable holds material rates in AUD per square metre keyed by material
// and grade, plus labor rate bands and the contingency percentage.
type RateTable struct {
	Materials             map[types.MaterialType]map[types.MaterialGrade]float64 `yaml:"materials"`
	Labor                 LaborRates                                             `yaml:"labor"`
	ContingencyPercentage int                                                    `yaml:"contingency_percentage"`
	BudgetMarginPercent   int                                                    `yaml:"budget_margin_percent"`
}

// DefaultRates returns the built-in Australian market rates. Standard grade
// matches the market baselines; economy and premium scale from it.
func DefaultRates() RateTable {
	grades := func(standard float64) map[types.MaterialGrade]float64 {
		return map[types.MaterialGrade]float64{
			types.GradeEconomy:  standard * 0.7,
			types.GradeStandard: standard,
			types.GradePremium:  standard * 1.5,
		}
	}

	return RateTable{
		Materials: map[types.MaterialType]map[types.MaterialGrade]float64{
			types.MaterialWood:           grades(200.0),
			types.MaterialGranite:        grades(900.0),
			types.MaterialTile:           grades(85.0),
			types.MaterialStainlessSteel: grades(250.0),
			types.MaterialVinyl:          grades(45.0),
			types.MaterialLaminate:       grades(60.0),
		},
		Labor: LaborRates{
			Cabinets:   LaborRange{Low: 80, High: 120},
			Granite:    LaborRange{Low: 100, High: 150},
			Tile:       LaborRange{Low: 60, High: 90},
			Appliances: LaborRange{Low: 200, High: 300},
		},
		ContingencyPercentage: 15,
		BudgetMarginPercent:   15,
	}
}

// LoadRates reads a YAML rates file and merges it over the defaults. Only
// the fields present in the file are overridden.
func LoadRates(path string) (RateTable, error) {
	table := DefaultRates()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("failed to read rates file: %w", err)
	}

	var override RateTable
	if err := yaml.Unmarshal(data, &override); err != nil {
		return table, fmt.Errorf("failed to parse rates file: %w", err)
	}

	for material, grades := range override.Materials {
		if table.Materials[material] == nil {
			table.Materials[material] = make(map[types.MaterialGrade]float64)
		}
		for grade, rate := range grades {
			table.Materials[material][grade] = rate
		}
	}
	if override.Labor.Cabinets != (LaborRange{}) {
		table.Labor.Cabinets = override.Labor.Cabinets
	}
	if override.Labor.Granite != (LaborRange{}) {
		table.Labor.Granite = override.Labor.Granite
	}
	if override.Labor.Tile != (LaborRange{}) {
		table.Labor.Tile = override.Labor.Tile
	}
	if override.Labor.Appliances != (LaborRange{}) {
		table.Labor.Appliances = override.Labor.Appliances
	}
	if override.ContingencyPercentage > 0 {
		table.ContingencyPercentage = override.ContingencyPercentage
	}
	if override.BudgetMarginPercent > 0 {
		table.BudgetMarginPercent = override.BudgetMarginPercent
	}

	return table, nil
}

// Rate looks up the per-sqm rate for a material at a grade, falling back to
// the standard grade when the specific grade is missing.
func (t RateTable) Rate(material types.MaterialType, grade types.MaterialGrade) (float64, bool) {
	grades, ok := t.Materials[material]
	if !ok {
		return 0, false
	}
	if rate, ok := grades[grade]; ok {
		return rate, true
	}
	rate, ok := grades[types.GradeStandard]
	return rate, ok
}
