// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"renoscope/platform/llm"
	"renoscope/platform/orchestrator/costparse"
	"renoscope/platform/shared/logger"
	"renoscope/platform/shared/types"
)

const extractorPrompt = `Please extract the kitchen renovation cost information from the following analysis text and format it consistently:

<analysis_text>
%s
</analysis_text>

I need you to find and extract these specific cost values in Australian dollars (AUD):

1. **Total Project Cost** - The final total renovation cost
2. **Material Cost** - Total cost of all materials (wood, granite, tiles, etc.)
3. **Labor Cost** - Total labor/installation costs
4. **Contingency Cost** - Any contingency or buffer costs mentioned
5. **Cost Per Square Meter** - Cost per square meter if mentioned
6. **Budget Range** - Any budget range or min/max values mentioned

**Output Requirements:**
- Always include "AUD" in the cost strings
- Use commas for thousands (e.g., "$14,348 AUD")
- If a range is mentioned, use format like "$12,000 - $16,500 AUD"
- If only a single value is found, just use that value
- If a cost type isn't mentioned or is zero, use "$0 AUD"
- Round to whole dollars (no cents) for cleaner display

**Output Format:**
Return ONLY a JSON object with this exact structure:
{
  "total_cost": "extracted total cost with AUD",
  "material_cost": "extracted material cost with AUD",
  "labor_cost": "extracted labor cost with AUD",
  "contingency_cost": "extracted contingency cost with AUD",
  "cost_per_sqm": "extracted cost per sqm with AUD",
  "budget_range": "extracted budget range with AUD",
  "has_valid_costs": true/false
}

Set "has_valid_costs" to true if you found meaningful cost data (non-zero values), false otherwise.`

// CostExtractor turns cost information into display strings. When a
// structured breakdown is available the formatting is purely arithmetic;
// free-form text falls back to structured JSON parsing and finally to an LLM
// extraction pass.
type CostExtractor struct {
	router *llm.Router
	log    *logger.Logger
}

// NewCostExtractor builds an extractor backed by the given router. A nil
// router disables the LLM fallback.
func NewCostExtractor(router *llm.Router) *CostExtractor {
	return &CostExtractor{
		router: router,
		log:    logger.New("orchestrator"),
	}
}

// FormatBreakdown renders display costs directly from a finished breakdown.
func FormatBreakdown(b *types.CostBreakdown) types.DisplayCosts {
	if b == nil {
		return types.ZeroDisplayCosts()
	}
	summary := b.Summary()
	return types.DisplayCosts{
		TotalCost:       formatAUD(summary.TotalCost),
		MaterialCost:    formatAUD(summary.MaterialCost),
		LaborCost:       formatAUD(summary.LaborCost),
		ContingencyCost: formatAUD(summary.ContingencyCost),
		CostPerSqm:      formatAUD(summary.CostPerSqm),
		BudgetRange:     formatAUDRange(summary.BudgetMin, summary.BudgetMax),
		HasValidCosts:   summary.TotalCost > 0,
	}
}

// ExtractFromText recovers display costs from free-form analysis text.
// Structured JSON embedded in the text is preferred; only when that fails is
// the LLM asked to extract the figures.
func (e *CostExtractor) ExtractFromText(ctx context.Context, requestID, text string) types.DisplayCosts {
	if summary, ok := costparse.ParseCosts(text); ok {
		return types.DisplayCosts{
			TotalCost:       formatAUD(summary.TotalCost),
			MaterialCost:    formatAUD(summary.MaterialCost),
			LaborCost:       formatAUD(summary.LaborCost),
			ContingencyCost: formatAUD(summary.ContingencyCost),
			CostPerSqm:      formatAUD(summary.CostPerSqm),
			BudgetRange:     formatAUDRange(summary.BudgetMin, summary.BudgetMax),
			HasValidCosts:   summary.TotalCost > 0,
		}
	}

	if e.router == nil {
		return types.ZeroDisplayCosts()
	}

	resp, _, err := e.router.Query(ctx, fmt.Sprintf(extractorPrompt, text), llm.QueryOptions{
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	if err != nil {
		e.log.ErrorWithStage(requestID, StageExtract, "llm cost extraction failed", err, nil)
		return types.ZeroDisplayCosts()
	}

	costs, err := parseExtractedCosts(resp.Content)
	if err != nil {
		e.log.ErrorWithStage(requestID, StageExtract, "llm cost extraction unparseable", err, nil)
		return types.ZeroDisplayCosts()
	}
	return costs
}

// parseExtractedCosts decodes the extractor's JSON reply, stripping markdown
// fences when the model wrapped its output.
func parseExtractedCosts(content string) (types.DisplayCosts, error) {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		if blocks := costparse.ExtractJSONBlocks(text); len(blocks) > 0 {
			text = blocks[0]
		} else {
			text = strings.Trim(text, "`")
			text = strings.TrimPrefix(text, "json")
			text = strings.TrimSpace(text)
		}
	}

	var costs types.DisplayCosts
	if err := json.Unmarshal([]byte(text), &costs); err != nil {
		return types.ZeroDisplayCosts(), err
	}
	zero := types.ZeroDisplayCosts()
	if costs.TotalCost == "" {
		costs.TotalCost = zero.TotalCost
	}
	if costs.MaterialCost == "" {
		costs.MaterialCost = zero.MaterialCost
	}
	if costs.LaborCost == "" {
		costs.LaborCost = zero.LaborCost
	}
	if costs.ContingencyCost == "" {
		costs.ContingencyCost = zero.ContingencyCost
	}
	if costs.CostPerSqm == "" {
		costs.CostPerSqm = zero.CostPerSqm
	}
	if costs.BudgetRange == "" {
		costs.BudgetRange = zero.BudgetRange
	}
	return costs, nil
}

// formatAUD renders a currency value as "$14,348 AUD", rounded to whole
// dollars.
func formatAUD(v float64) string {
	return "$" + groupThousands(int64(math.Round(v))) + " AUD"
}

func formatAUDRange(lo, hi float64) string {
	return "$" + groupThousands(int64(math.Round(lo))) + " - $" + groupThousands(int64(math.Round(hi))) + " AUD"
}

func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}
