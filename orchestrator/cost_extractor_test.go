// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renoscope/platform/llm"
	"renoscope/platform/shared/types"
)

func TestFormatBreakdown(t *testing.T) {
	estimate := estimateFixture()
	costs := FormatBreakdown(&estimate.Breakdown)

	assert.Equal(t, "$18,512 AUD", costs.TotalCost)
	assert.Equal(t, "$11,623 AUD", costs.MaterialCost)
	assert.Equal(t, "$4,475 AUD", costs.LaborCost)
	assert.Equal(t, "$2,415 AUD", costs.ContingencyCost)
	assert.Equal(t, "$463 AUD", costs.CostPerSqm)
	assert.Equal(t, "$15,735 - $21,289 AUD", costs.BudgetRange)
	assert.True(t, costs.HasValidCosts)
}

func TestFormatBreakdownNil(t *testing.T) {
	costs := FormatBreakdown(nil)
	assert.Equal(t, types.ZeroDisplayCosts(), costs)
	assert.False(t, costs.HasValidCosts)
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{14348, "14,348"},
		{1234567, "1,234,567"},
		{-5200, "-5,200"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, groupThousands(tt.in))
	}
}

func TestExtractFromTextStructuredJSON(t *testing.T) {
	// Structured payloads never reach the LLM, so no router is needed.
	e := NewCostExtractor(nil)

	text := "Estimate attached.\n```json\n" + `{
  "cost_breakdown": {
    "material_costs": {"total_material_cost": 7551.47},
    "labor_costs": {"total_labor_cost": 4225.00},
    "contingency": {"percentage": 15, "amount": 1763.91},
    "final_project_total": 13540.38,
    "cost_per_square_metre": 246.19,
    "budget_range": {"lower_limit": 11509.32, "upper_limit": 15571.44}
  }
}` + "\n```"

	costs := e.ExtractFromText(context.Background(), "req-1", text)
	assert.Equal(t, "$13,540 AUD", costs.TotalCost)
	assert.Equal(t, "$7,551 AUD", costs.MaterialCost)
	assert.Equal(t, "$4,225 AUD", costs.LaborCost)
	assert.Equal(t, "$11,509 - $15,571 AUD", costs.BudgetRange)
	assert.True(t, costs.HasValidCosts)
}

func TestExtractFromTextLLMFallback(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetResponses(`{"total_cost":"$14,348 AUD","material_cost":"$7,521 AUD","labor_cost":"$4,975 AUD",` +
		`"contingency_cost":"$1,852 AUD","cost_per_sqm":"$550 AUD","budget_range":"$12,196 - $16,499 AUD",` +
		`"has_valid_costs":true}`)
	router := llm.NewRouter(llm.Config{EnableMock: true})
	router.Register(mock, 1.0)

	e := NewCostExtractor(router)
	costs := e.ExtractFromText(context.Background(), "req-1", "total came to around fourteen grand")

	assert.Equal(t, "$14,348 AUD", costs.TotalCost)
	assert.Equal(t, "$12,196 - $16,499 AUD", costs.BudgetRange)
	assert.True(t, costs.HasValidCosts)

	queries := mock.Queries()
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "fourteen grand")
	assert.Contains(t, queries[0], "Australian dollars")
}

func TestExtractFromTextLLMFailure(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetError(errors.New("provider down"))
	router := llm.NewRouter(llm.Config{EnableMock: true})
	router.Register(mock, 1.0)

	e := NewCostExtractor(router)
	costs := e.ExtractFromText(context.Background(), "req-1", "no numbers here")

	assert.Equal(t, types.ZeroDisplayCosts(), costs)
	assert.False(t, costs.HasValidCosts)
}

func TestParseExtractedCosts(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		costs, err := parseExtractedCosts("```json\n{\"total_cost\":\"$9,000 AUD\",\"has_valid_costs\":true}\n```")
		require.NoError(t, err)
		assert.Equal(t, "$9,000 AUD", costs.TotalCost)
		assert.True(t, costs.HasValidCosts)
		// Unmentioned fields fall back to the zero placeholders.
		assert.Equal(t, "$0 AUD", costs.LaborCost)
		assert.Equal(t, "$0 - $0 AUD", costs.BudgetRange)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseExtractedCosts("sorry, I could not find any costs")
		require.Error(t, err)
	})
}
