// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"renoscope/platform/llm"
	"renoscope/platform/shared/logger"
	"renoscope/platform/shared/types"
)

// crewRole is one member of the sequential estimation crew.
type crewRole struct {
	name      string
	goal      string
	backstory string
}

var crewRoles = []crewRole{
	{
		name: "materials_expert",
		goal: "Analyze kitchen materials and provide accurate Australian cost estimates per square metre",
		backstory: `You are an expert in Australian construction materials with 15+ years experience.
You know current market prices for kitchen materials in AUD per square metre.
You specialize in wood, granite, tiles, and stainless steel pricing.`,
	},
	{
		name: "labor_analyst",
		goal: "Calculate Australian labor costs for kitchen installation based on material complexity",
		backstory: `You are an experienced Australian contractor specializing in kitchen installations.
You know labor rates, installation complexity, and time requirements for different materials.
You calculate costs in AUD and consider Australian trade rates.`,
	},
	{
		name: "cost_synthesizer",
		goal: "Combine material and labor costs into comprehensive Australian kitchen renovation estimates",
		backstory: `You are a financial analyst specializing in Australian construction project costs.
You synthesize material and labor estimates, add contingencies, and provide realistic budget ranges.`,
	},
}

// Estimator runs the deterministic breakdown plus the narrative crew.
type Estimator struct {
	rates  RateTable
	router *llm.Router
	log    *logger.Logger
}

func NewEstimator(rates RateTable, router *llm.Router) *Estimator {
	return &Estimator{
		rates:  rates,
		router: router,
		log:    logger.New("cost-agent"),
	}
}

// Estimate computes the cost breakdown and gathers the per-role narrative
// reports. Narrative failures are logged and leave RoleReports incomplete;
// the breakdown itself never depends on the LLM.
func (e *Estimator) Estimate(ctx context.Context, requestID string, req types.EstimateRequest) (*types.EstimateResult, error) {
	start := time.Now()

	grade := req.Grade
	if grade == "" {
		grade = types.GradeStandard
	}

	breakdown, err := BuildBreakdown(req, e.rates)
	if err != nil {
		return nil, err
	}

	result := &types.EstimateResult{
		Breakdown:   breakdown,
		Grade:       grade,
		RoleReports: e.runCrew(ctx, requestID, req, grade, breakdown),
		EstimatedAt: time.Now().UTC(),
	}

	e.log.InfoWithDuration(requestID, "estimate complete", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"grade":        string(grade),
		"total":        breakdown.FinalProjectTotal,
		"role_reports": len(result.RoleReports),
	})
	return result, nil
}

// runCrew executes the three roles sequentially, feeding each role the
// outputs of the roles before it.
func (e *Estimator) runCrew(ctx context.Context, requestID string, req types.EstimateRequest, grade types.MaterialGrade, breakdown types.CostBreakdown) map[string]string {
	reports := make(map[string]string, len(crewRoles))
	var priorOutputs []string

	for _, role := range crewRoles {
		task, err := e.buildTask(role, req, grade, breakdown, priorOutputs)
		if err != nil {
			e.log.ErrorWithStage(requestID, role.name, "failed to build task", err, nil)
			continue
		}

		resp, _, err := e.router.Query(ctx, task, llm.QueryOptions{
			MaxTokens:    4000,
			Temperature:  0.1,
			SystemPrompt: fmt.Sprintf("Role: %s\nGoal: %s\n\n%s", role.name, role.goal, role.backstory),
		})
		if err != nil {
			e.log.ErrorWithStage(requestID, role.name, "crew role failed", err, nil)
			continue
		}

		reports[role.name] = resp.Content
		priorOutputs = append(priorOutputs, fmt.Sprintf("[%s]\n%s", role.name, resp.Content))
	}

	return reports
}

func (e *Estimator) buildTask(role crewRole, req types.EstimateRequest, grade types.MaterialGrade, breakdown types.CostBreakdown, priorOutputs []string) (string, error) {
	var b strings.Builder

	if len(priorOutputs) > 0 {
		b.WriteString("Context from previous analysis:\n\n")
		b.WriteString(strings.Join(priorOutputs, "\n\n"))
		b.WriteString("\n\n")
	}

	switch role.name {
	case "materials_expert":
		materialsJSON, err := json.MarshalIndent(req.Materials, "", "  ")
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, `Analyze these kitchen materials and provide Australian cost estimates:
%s

For %s grade materials, comment on cost per square metre in AUD:
- Wood (cabinets): Australian hardwood and engineered options
- Granite (countertops): Australian stone suppliers
- Tile (flooring): ceramic and porcelain options
- Stainless steel (appliances): commercial grade pricing
`, materialsJSON, grade)

	case "labor_analyst":
		fmt.Fprintf(&b, `Based on the material analysis, assess Australian labor costs for installation:

- Kitchen cabinet installation: $%.0f-%.0f AUD per sqm over %.1f sqm
- Granite countertop installation: $%.0f-%.0f AUD per sqm over %.1f sqm
- Tile flooring installation: $%.0f-%.0f AUD per sqm over %.1f sqm
- Appliance installation: $%.0f-%.0f AUD per unit for %d units

Factor in complexity, access, and Australian trade rates.
`,
			e.rates.Labor.Cabinets.Low, e.rates.Labor.Cabinets.High, req.Measurements.CabinetArea,
			e.rates.Labor.Granite.Low, e.rates.Labor.Granite.High, req.Measurements.CountertopArea,
			e.rates.Labor.Tile.Low, e.rates.Labor.Tile.High, req.Measurements.FlooringArea,
			e.rates.Labor.Appliances.Low, e.rates.Labor.Appliances.High, req.Measurements.ApplianceCount)

	case "cost_synthesizer":
		breakdownJSON, err := json.MarshalIndent(breakdown, "", "  ")
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, `Present this computed renovation estimate as a clear summary for a homeowner:
%s

Cover the total material costs, total labor costs, the %d%% contingency, the
final project total in AUD, cost per square metre, and the budget range.
`, breakdownJSON, e.rates.ContingencyPercentage)

	default:
		return "", fmt.Errorf("unknown crew role %q", role.name)
	}

	return b.String(), nil
}
