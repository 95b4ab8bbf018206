// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"renoscope/platform/llm"
	"renoscope/platform/photostore"
	"renoscope/platform/shared/logger"
	"renoscope/platform/shared/types"
)

const narrativeSystemPrompt = `You are a kitchen renovation expert with computer vision capabilities.
You can analyze kitchen images, detect objects, and provide renovation recommendations.`

// AnalyzeRequest is the vision agent's invocation payload. Exactly one of
// PhotoKey, ImageData, or Detections should be set; Detections bypasses
// detection entirely (used when the caller already ran a detector).
type AnalyzeRequest struct {
	RequestID     string                 `json:"request_id"`
	PhotoKey      string                 `json:"photo_key,omitempty"`
	ImageData     []byte                 `json:"image_data,omitempty"`
	Detections    []types.DetectedObject `json:"detections,omitempty"`
	SkipNarrative bool                   `json:"skip_narrative,omitempty"`
}

// Analyzer runs the detection, material inference, and narrative stages.
type Analyzer struct {
	detector ObjectDetector
	router   *llm.Router
	store    photostore.Store
	log      *logger.Logger
}

// NewAnalyzer builds an analyzer. store may be nil when photos always arrive
// inline as ImageData.
func NewAnalyzer(detector ObjectDetector, router *llm.Router, store photostore.Store) *Analyzer {
	return &Analyzer{
		detector: detector,
		router:   router,
		store:    store,
		log:      logger.New("vision-agent"),
	}
}

// Analyze produces the full scene analysis for one photo. A narrative
// failure degrades the result to status "partial" rather than failing the
// whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*types.SceneAnalysis, error) {
	start := time.Now()

	objects := req.Detections
	imageRef := req.PhotoKey

	if objects == nil {
		image, err := a.resolveImage(ctx, req)
		if err != nil {
			return nil, err
		}
		if imageRef == "" {
			imageRef = "inline"
		}

		objects, err = a.detector.Detect(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("detection failed: %w", err)
		}
		a.log.Info(req.RequestID, "detection complete", map[string]interface{}{
			"detector": a.detector.Name(),
			"objects":  len(objects),
		})
	}

	kept := FilterKitchenObjects(objects)
	materials := InferMaterials(kept)
	measurements := CalculateMeasurements(kept)

	analysis := &types.SceneAnalysis{
		ImageRef:        imageRef,
		DetectedObjects: kept,
		Materials:       materials,
		Measurements:    measurements,
		Status:          "completed",
		AnalyzedAt:      time.Now().UTC(),
	}

	if !req.SkipNarrative {
		narrative, err := a.narrate(ctx, kept, measurements)
		if err != nil {
			a.log.ErrorWithStage(req.RequestID, "narrative", "narrative generation failed", err, nil)
			analysis.Status = "partial"
		} else {
			analysis.Narrative = narrative
		}
	}

	a.log.InfoWithDuration(req.RequestID, "analysis complete", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"status":     analysis.Status,
		"objects":    len(kept),
		"materials":  len(materials),
		"total_sqm":  measurements.TotalKitchenArea,
		"appliances": measurements.ApplianceCount,
	})
	return analysis, nil
}

func (a *Analyzer) resolveImage(ctx context.Context, req AnalyzeRequest) ([]byte, error) {
	if len(req.ImageData) > 0 {
		return req.ImageData, nil
	}
	if req.PhotoKey != "" {
		if a.store == nil {
			return nil, fmt.Errorf("photo_key given but no photo store configured")
		}
		image, err := a.store.Get(ctx, req.PhotoKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load photo %s: %w", req.PhotoKey, err)
		}
		return image, nil
	}
	return nil, fmt.Errorf("request carries no photo_key, image_data, or detections")
}

func (a *Analyzer) narrate(ctx context.Context, objects []types.DetectedObject, m types.Measurements) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this kitchen. Detected objects:\n")
	for _, obj := range objects {
		fmt.Fprintf(&b, "- %s (confidence %.2f)\n", obj.Name, obj.Confidence)
	}
	fmt.Fprintf(&b, "\nEstimated kitchen area: %.1f sqm with %d major appliances.\n", m.TotalKitchenArea, m.ApplianceCount)
	b.WriteString(`
Please provide:
1. Kitchen layout assessment
2. Renovation recommendations
3. Material suggestions
4. Cost considerations for the Australian market
`)

	resp, _, err := a.router.Query(ctx, b.String(), llm.QueryOptions{
		MaxTokens:    4000,
		Temperature:  0.1,
		SystemPrompt: narrativeSystemPrompt,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
