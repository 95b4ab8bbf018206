// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"time"

	"renoscope/platform/shared/types"
)

// Pipeline stage names, in execution order.
const (
	StageDetect     = "detect"
	StageEstimate   = "estimate"
	StageRecommend  = "recommend"
	StageExtract    = "extract"
	StageSynthesize = "synthesize"
)

// Analysis statuses.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// AnalysisRequest is the orchestrator's public analyze payload.
type AnalysisRequest struct {
	RequestID string `json:"request_id,omitempty"`

	// PhotoKey references a photo previously uploaded to the photo store;
	// ImageData carries the photo inline instead.
	PhotoKey  string `json:"photo_key,omitempty"`
	ImageData []byte `json:"image_data,omitempty"`

	Grade        types.MaterialGrade `json:"grade,omitempty"`
	IncludeLabor *bool               `json:"include_labor,omitempty"`

	// QuickMode stops after detection: no cost crew, no recommendations.
	QuickMode bool `json:"quick_mode,omitempty"`
}

// StageResult records the outcome and timing of one pipeline stage.
type StageResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// AnalysisResponse is the orchestrator's public analyze result. Fields past
// Analysis are nil when their stage was skipped or failed.
type AnalysisResponse struct {
	RequestID       string                `json:"request_id"`
	Status          string                `json:"status"`
	Analysis        *types.SceneAnalysis  `json:"analysis,omitempty"`
	Estimate        *types.EstimateResult `json:"estimate,omitempty"`
	Recommendations []string              `json:"recommendations,omitempty"`
	DisplayCosts    *types.DisplayCosts   `json:"display_costs,omitempty"`
	Report          string                `json:"report,omitempty"`
	Stages          []StageResult         `json:"stages"`
	CompletedAt     time.Time             `json:"completed_at"`
}

// AgentStatus is one entry of the agents/status endpoint.
type AgentStatus struct {
	Name        string    `json:"name"`
	Endpoint    string    `json:"endpoint"`
	Healthy     bool      `json:"healthy"`
	LastChecked time.Time `json:"last_checked"`
}

// UploadURLRequest asks for a presigned photo upload URL.
type UploadURLRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
}

// UploadURLResponse carries the presigned URL and the key to reference in a
// later analyze call.
type UploadURLResponse struct {
	PhotoKey  string    `json:"photo_key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
