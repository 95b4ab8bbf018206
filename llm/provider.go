// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"time"
)

// Provider is implemented by each LLM backend.
type Provider interface {
	Name() string
	Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error)
	IsHealthy() bool
	GetCapabilities() []string
	EstimateCost(tokens int) float64
}

// QueryOptions contains per-call options for LLM queries.
type QueryOptions struct {
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt"`
}

// Response is the normalized result of an LLM query.
type Response struct {
	Content      string                 `json:"content"`
	Model        string                 `json:"model"`
	TokensUsed   int                    `json:"tokens_used"`
	Metadata     map[string]interface{} `json:"metadata"`
	ResponseTime time.Duration          `json:"response_time"`
}

// ProviderStatus is the externally visible state of one provider.
type ProviderStatus struct {
	Name         string    `json:"name"`
	Healthy      bool      `json:"healthy"`
	Weight       float64   `json:"weight"`
	RequestCount int64     `json:"request_count"`
	ErrorCount   int64     `json:"error_count"`
	AvgLatency   float64   `json:"avg_latency_ms"`
	LastUsed     time.Time `json:"last_used"`
}

// RouteInfo describes which provider served a routed query and at what cost.
type RouteInfo struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	TokensUsed     int     `json:"tokens_used"`
	Cost           float64 `json:"cost"`
}

// Config selects which providers the router initializes. A provider is
// enabled when its field is non-empty; EnableMock forces a deterministic
// in-process provider for local development.
type Config struct {
	BedrockRegion  string
	BedrockModel   string
	AnthropicKey   string
	AnthropicModel string
	OllamaEndpoint string
	OllamaModel    string
	EnableMock     bool
}

var (
	// ErrNoProviders means the router was configured with no usable backend.
	ErrNoProviders = errors.New("llm: no providers configured")

	// ErrNoHealthyProvider means every configured backend is currently failing
	// health checks.
	ErrNoHealthyProvider = errors.New("llm: no healthy provider available")

	// ErrUnknownProvider means a caller asked for a provider by name that the
	// router does not have.
	ErrUnknownProvider = errors.New("llm: unknown provider")
)
