// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// OllamaProvider calls a self-hosted Ollama instance. Intended for local
// development and air-gapped deployments where no cloud model is reachable.
type OllamaProvider struct {
	endpoint string
	model    string
	healthy  bool
	client   *http.Client
}

func NewOllamaProvider(endpoint, model string) *OllamaProvider {
	if endpoint == "" {
		endpoint = "http://ollama:11434"
	}
	if model == "" {
		model = "llama3.1:8b"
	}
	return &OllamaProvider{
		endpoint: endpoint,
		model:    model,
		healthy:  true,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	start := time.Now()

	model := options.Model
	if model == "" {
		model = p.model
	}

	fullPrompt := prompt
	if options.SystemPrompt != "" {
		fullPrompt = options.SystemPrompt + "\n\n" + prompt
	}

	ollamaReq := map[string]interface{}{
		"model":  model,
		"prompt": fullPrompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": options.Temperature,
			"num_predict": options.MaxTokens,
		},
	}

	reqBody, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.healthy = false
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: %s", string(body))
	}

	var ollamaResp struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, err
	}

	p.healthy = true

	return &Response{
		Content:    ollamaResp.Response,
		Model:      model,
		TokensUsed: ollamaResp.PromptEvalCount + ollamaResp.EvalCount,
		Metadata: map[string]interface{}{
			"provider":          "ollama",
			"prompt_tokens":     ollamaResp.PromptEvalCount,
			"completion_tokens": ollamaResp.EvalCount,
		},
		ResponseTime: time.Since(start),
	}, nil
}

func (p *OllamaProvider) IsHealthy() bool {
	return p.healthy
}

func (p *OllamaProvider) GetCapabilities() []string {
	return []string{"reasoning", "writing", "local"}
}

func (p *OllamaProvider) EstimateCost(tokens int) float64 {
	// Self-hosted, no per-token billing.
	return 0
}
