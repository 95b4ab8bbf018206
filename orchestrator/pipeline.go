// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"renoscope/platform/agents/vision"
	"renoscope/platform/llm"
	"renoscope/platform/shared/logger"
	"renoscope/platform/shared/types"
)

const synthesisSystemPrompt = `You are a comprehensive kitchen renovation advisor.
Synthesize the detection results, cost estimates, and recommendations below into
a renovation plan a homeowner can act on. Always quote costs in Australian
dollars and measurements in square metres. Focus on practical, actionable advice.`

// Pipeline runs a photo through the full analysis sequence: detection on the
// vision agent, estimation on the cost agent, deterministic recommendations,
// display-cost extraction, and LLM report synthesis. Stages after detection
// degrade independently; a failed stage marks the analysis partial rather
// than aborting it.
type Pipeline struct {
	agents    *AgentClient
	extractor *CostExtractor
	router    *llm.Router
	audit     *AuditLogger
	metrics   *MetricsCollector
	log       *logger.Logger
}

// NewPipeline wires the pipeline. Router may be nil to disable synthesis and
// the LLM extraction fallback; audit and metrics may be nil in tests.
func NewPipeline(agents *AgentClient, router *llm.Router, audit *AuditLogger, metrics *MetricsCollector) *Pipeline {
	return &Pipeline{
		agents:    agents,
		extractor: NewCostExtractor(router),
		router:    router,
		audit:     audit,
		metrics:   metrics,
		log:       logger.New("orchestrator"),
	}
}

// Run executes the pipeline for one request. The returned response always
// carries per-stage results; an error is returned only when the request
// itself is invalid or detection produced nothing to work with. Cancelling
// ctx stops the pipeline after the stage in flight and records the stages
// not yet run as skipped.
func (p *Pipeline) Run(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	grade, err := types.ParseGrade(string(req.Grade))
	if err != nil {
		return nil, err
	}
	resp := &AnalysisResponse{
		RequestID: req.RequestID,
		Status:    StatusCompleted,
	}
	start := time.Now()

	// Stage 1: detection on the vision agent.
	analysis, stage := p.runDetect(ctx, req)
	p.finishStage(req, grade, resp, stage, nil)
	if analysis == nil {
		resp.Status = StatusFailed
		p.skipRemaining(resp, StageEstimate, StageRecommend, StageExtract, StageSynthesize)
		p.finish(req, resp, start)
		return resp, fmt.Errorf("detection failed: %s", stage.Error)
	}
	resp.Analysis = analysis
	if analysis.Status == "partial" {
		resp.Status = StatusPartial
	}

	if req.QuickMode {
		p.skipRemaining(resp, StageEstimate, StageRecommend, StageExtract, StageSynthesize)
		p.finish(req, resp, start)
		return resp, nil
	}
	if ctx.Err() != nil {
		resp.Status = StatusPartial
		p.skipRemaining(resp, StageEstimate, StageRecommend, StageExtract, StageSynthesize)
		p.finish(req, resp, start)
		return resp, nil
	}

	// Stage 2: estimation on the cost agent.
	estimate, stage := p.runEstimate(ctx, req.RequestID, types.EstimateRequest{
		Materials:    analysis.Materials,
		Measurements: analysis.Measurements,
		Grade:        grade,
		IncludeLabor: req.IncludeLabor,
	})
	p.finishStage(req, grade, resp, stage, nil)
	if estimate != nil {
		resp.Estimate = estimate
	} else {
		resp.Status = StatusPartial
	}
	if ctx.Err() != nil {
		resp.Status = StatusPartial
		p.skipRemaining(resp, StageRecommend, StageExtract, StageSynthesize)
		p.finish(req, resp, start)
		return resp, nil
	}

	// Stage 3: deterministic recommendations.
	stageStart := time.Now()
	var breakdown *types.CostBreakdown
	if estimate != nil {
		breakdown = &estimate.Breakdown
	}
	resp.Recommendations = Recommendations(analysis, breakdown)
	p.finishStage(req, grade, resp, StageResult{
		Name:       StageRecommend,
		Status:     StatusCompleted,
		DurationMS: time.Since(stageStart).Milliseconds(),
	}, map[string]interface{}{"count": len(resp.Recommendations)})

	// Stage 4: display-cost extraction.
	stageStart = time.Now()
	displayCosts := p.extractCosts(ctx, req.RequestID, analysis, estimate)
	resp.DisplayCosts = &displayCosts
	extractStatus := StatusCompleted
	if !displayCosts.HasValidCosts {
		extractStatus = StatusPartial
	}
	p.finishStage(req, grade, resp, StageResult{
		Name:       StageExtract,
		Status:     extractStatus,
		DurationMS: time.Since(stageStart).Milliseconds(),
	}, nil)

	// Stage 5: report synthesis.
	stage, detail := p.runSynthesize(ctx, req.RequestID, resp)
	p.finishStage(req, grade, resp, stage, detail)
	if stage.Status == StatusFailed {
		resp.Status = StatusPartial
	}

	p.finish(req, resp, start)
	return resp, nil
}

func (p *Pipeline) runDetect(ctx context.Context, req AnalysisRequest) (*types.SceneAnalysis, StageResult) {
	start := time.Now()
	analysis, err := p.agents.AnalyzeScene(ctx, vision.AnalyzeRequest{
		RequestID: req.RequestID,
		PhotoKey:  req.PhotoKey,
		ImageData: req.ImageData,
	})
	stage := StageResult{
		Name:       StageDetect,
		Status:     StatusCompleted,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		stage.Status = StatusFailed
		stage.Error = err.Error()
		p.recordAgentCall(agentVision, "error")
		p.log.ErrorWithStage(req.RequestID, StageDetect, "vision agent call failed", err, nil)
		return nil, stage
	}
	p.recordAgentCall(agentVision, "success")
	return analysis, stage
}

func (p *Pipeline) runEstimate(ctx context.Context, requestID string, req types.EstimateRequest) (*types.EstimateResult, StageResult) {
	start := time.Now()
	estimate, err := p.agents.EstimateCosts(ctx, requestID, req)
	stage := StageResult{
		Name:       StageEstimate,
		Status:     StatusCompleted,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		stage.Status = StatusFailed
		stage.Error = err.Error()
		p.recordAgentCall(agentCost, "error")
		p.log.ErrorWithStage(requestID, StageEstimate, "cost agent call failed", err, nil)
		return nil, stage
	}
	p.recordAgentCall(agentCost, "success")
	return estimate, stage
}

// extractCosts prefers arithmetic formatting from the structured breakdown;
// the text-based paths only run when the estimate stage failed.
func (p *Pipeline) extractCosts(ctx context.Context, requestID string, analysis *types.SceneAnalysis, estimate *types.EstimateResult) types.DisplayCosts {
	if estimate != nil {
		return FormatBreakdown(&estimate.Breakdown)
	}

	var text strings.Builder
	if analysis != nil && analysis.Narrative != "" {
		text.WriteString(analysis.Narrative)
	}
	if text.Len() == 0 {
		return types.ZeroDisplayCosts()
	}
	return p.extractor.ExtractFromText(ctx, requestID, text.String())
}

func (p *Pipeline) runSynthesize(ctx context.Context, requestID string, resp *AnalysisResponse) (StageResult, map[string]interface{}) {
	start := time.Now()
	stage := StageResult{Name: StageSynthesize, Status: StatusCompleted}

	if p.router == nil {
		stage.Status = "skipped"
		return stage, nil
	}

	prompt, err := buildSynthesisPrompt(resp)
	if err != nil {
		stage.Status = StatusFailed
		stage.Error = err.Error()
		stage.DurationMS = time.Since(start).Milliseconds()
		return stage, nil
	}

	llmResp, route, err := p.router.Query(ctx, prompt, llm.QueryOptions{
		MaxTokens:    4000,
		Temperature:  0.1,
		SystemPrompt: synthesisSystemPrompt,
	})
	stage.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		stage.Status = StatusFailed
		stage.Error = err.Error()
		p.log.ErrorWithStage(requestID, StageSynthesize, "report synthesis failed", err, nil)
		return stage, nil
	}

	resp.Report = llmResp.Content
	var detail map[string]interface{}
	if route != nil {
		detail = map[string]interface{}{
			"provider":    route.Provider,
			"model":       route.Model,
			"tokens_used": route.TokensUsed,
			"cost":        route.Cost,
		}
	}
	return stage, detail
}

func (p *Pipeline) recordAgentCall(agent, status string) {
	if p.metrics != nil {
		p.metrics.RecordAgentCall(agent, status)
	}
}

// buildSynthesisPrompt assembles the final-report request from everything
// earlier stages produced.
func buildSynthesisPrompt(resp *AnalysisResponse) (string, error) {
	var b strings.Builder
	b.WriteString("Please produce the final renovation plan for this kitchen analysis.\n\n")

	if resp.Analysis != nil {
		detection, err := json.Marshal(map[string]interface{}{
			"detected_objects": resp.Analysis.DetectedObjects,
			"materials":        resp.Analysis.Materials,
			"measurements":     resp.Analysis.Measurements,
		})
		if err != nil {
			return "", err
		}
		b.WriteString("Detection results:\n")
		b.Write(detection)
		b.WriteString("\n\n")
		if resp.Analysis.Narrative != "" {
			b.WriteString("Scene narrative:\n")
			b.WriteString(resp.Analysis.Narrative)
			b.WriteString("\n\n")
		}
	}

	if resp.Estimate != nil {
		costs, err := json.Marshal(resp.Estimate.Breakdown)
		if err != nil {
			return "", err
		}
		b.WriteString(fmt.Sprintf("Cost breakdown (%s grade, AUD):\n", resp.Estimate.Grade))
		b.Write(costs)
		b.WriteString("\n\n")
	} else {
		b.WriteString("Cost estimation was unavailable for this analysis; note that in the plan.\n\n")
	}

	if len(resp.Recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for _, rec := range resp.Recommendations {
			b.WriteString("- ")
			b.WriteString(rec)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Summarize the scope of work, key costs, budget guidance, and next steps.")
	return b.String(), nil
}

func (p *Pipeline) skipRemaining(resp *AnalysisResponse, stages ...string) {
	for _, name := range stages {
		resp.Stages = append(resp.Stages, StageResult{Name: name, Status: "skipped"})
	}
}

func (p *Pipeline) finishStage(req AnalysisRequest, grade types.MaterialGrade, resp *AnalysisResponse, stage StageResult, detail map[string]interface{}) {
	resp.Stages = append(resp.Stages, stage)
	if p.audit != nil {
		p.audit.LogStage(req.RequestID, req.PhotoKey, string(grade), stage, detail)
	}
}

func (p *Pipeline) finish(req AnalysisRequest, resp *AnalysisResponse, start time.Time) {
	resp.CompletedAt = time.Now().UTC()
	if p.metrics != nil {
		p.metrics.RecordAnalysis(resp.Status, resp.Stages)
	}
	p.log.InfoWithDuration(req.RequestID, "analysis finished", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"status": resp.Status,
		"stages": len(resp.Stages),
	})
}
