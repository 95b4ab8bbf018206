// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package costparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBreakdownDoc = `{
  "cost_breakdown": {
    "material_costs": {"wood": 2100, "granite": 2250, "total_material_cost": 4350},
    "labor_costs": {"kitchen_cabinets": 1400, "total_labor_cost": 1400},
    "contingency": {"percentage": 15, "amount": 862.5},
    "final_project_total": 6612.5,
    "cost_per_square_metre": 165.31,
    "budget_range": {"lower_limit": 5620.63, "upper_limit": 7604.38}
  }
}`

func TestValidateBreakdownJSONValid(t *testing.T) {
	require.NoError(t, ValidateBreakdownJSON([]byte(validBreakdownDoc)))
}

func TestValidateBreakdownJSONViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "negative currency value",
			doc: `{"cost_breakdown": {
				"material_costs": {"total_material_cost": -100},
				"labor_costs": {"total_labor_cost": 1400},
				"contingency": {"percentage": 15, "amount": 100},
				"final_project_total": 1400,
				"cost_per_square_metre": 35,
				"budget_range": {"lower_limit": 1200, "upper_limit": 1600}
			}}`,
		},
		{
			name: "missing budget range",
			doc: `{"cost_breakdown": {
				"material_costs": {"total_material_cost": 100},
				"labor_costs": {"total_labor_cost": 100},
				"contingency": {"amount": 30},
				"final_project_total": 230,
				"cost_per_square_metre": 5.75
			}}`,
		},
		{
			name: "missing cost_breakdown root",
			doc:  `{"material_costs": {"total_material_cost": 100}}`,
		},
		{
			name: "contingency percentage out of range",
			doc: `{"cost_breakdown": {
				"material_costs": {"total_material_cost": 100},
				"labor_costs": {"total_labor_cost": 100},
				"contingency": {"percentage": 150, "amount": 30},
				"final_project_total": 230,
				"cost_per_square_metre": 5.75,
				"budget_range": {"lower_limit": 195, "upper_limit": 265}
			}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBreakdownJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaViolation), "expected ErrSchemaViolation, got %v", err)
		})
	}
}
