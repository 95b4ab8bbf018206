// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package costparse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation is returned when a breakdown fails schema validation.
var ErrSchemaViolation = errors.New("cost breakdown schema violation")

// breakdownSchema is the canonical contract for the cost_breakdown payload.
// All currency values are non-negative AUD amounts.
const breakdownSchema = `{
  "type": "object",
  "required": ["cost_breakdown"],
  "properties": {
    "cost_breakdown": {
      "type": "object",
      "required": ["material_costs", "labor_costs", "contingency", "final_project_total", "cost_per_square_metre", "budget_range"],
      "properties": {
        "material_costs": {
          "type": "object",
          "required": ["total_material_cost"],
          "properties": {
            "stainless_steel": {"type": "number", "minimum": 0},
            "wood": {"type": "number", "minimum": 0},
            "granite": {"type": "number", "minimum": 0},
            "tile": {"type": "number", "minimum": 0},
            "total_material_cost": {"type": "number", "minimum": 0}
          }
        },
        "labor_costs": {
          "type": "object",
          "required": ["total_labor_cost"],
          "properties": {
            "kitchen_cabinets": {"type": "number", "minimum": 0},
            "granite_countertops": {"type": "number", "minimum": 0},
            "tile_flooring": {"type": "number", "minimum": 0},
            "appliances": {"type": "number", "minimum": 0},
            "total_labor_cost": {"type": "number", "minimum": 0}
          }
        },
        "contingency": {
          "type": "object",
          "required": ["amount"],
          "properties": {
            "percentage": {"type": "integer", "minimum": 0, "maximum": 100},
            "amount": {"type": "number", "minimum": 0}
          }
        },
        "final_project_total": {"type": "number", "minimum": 0},
        "cost_per_square_metre": {"type": "number", "minimum": 0},
        "budget_range": {
          "type": "object",
          "required": ["lower_limit", "upper_limit"],
          "properties": {
            "lower_limit": {"type": "number", "minimum": 0},
            "upper_limit": {"type": "number", "minimum": 0}
          }
        }
      }
    }
  }
}`

// ValidateBreakdownJSON checks a raw cost_breakdown document against the
// canonical schema. Returns ErrSchemaViolation with the field-level details
// joined into the message.
func ValidateBreakdownJSON(document []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(breakdownSchema)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
}
