// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockProvider returns canned responses without network calls. It backs the
// router in tests and when ENABLE_MOCK_LLM is set during local development.
type MockProvider struct {
	name    string
	healthy bool

	mu        sync.Mutex
	responses []string
	next      int
	queries   []string
	err       error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{name: "mock", healthy: true}
}

// SetResponses replaces the canned response sequence. Responses are served
// in order; the last one repeats when the sequence runs out.
func (p *MockProvider) SetResponses(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
	p.next = 0
}

// SetError makes every subsequent Query fail with err. Pass nil to clear.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	p.healthy = err == nil
}

// Queries returns a copy of every prompt seen so far.
func (p *MockProvider) Queries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.queries))
	copy(out, p.queries)
	return out
}

func (p *MockProvider) Name() string {
	return p.name
}

func (p *MockProvider) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.queries = append(p.queries, prompt)
	if p.err != nil {
		return nil, p.err
	}

	content := fmt.Sprintf("Mock response for: %.80s", prompt)
	if len(p.responses) > 0 {
		content = p.responses[p.next]
		if p.next < len(p.responses)-1 {
			p.next++
		}
	}

	return &Response{
		Content:    content,
		Model:      "mock-model",
		TokensUsed: len(prompt) / 4,
		Metadata: map[string]interface{}{
			"provider": p.name,
		},
		ResponseTime: time.Millisecond,
	}, nil
}

func (p *MockProvider) IsHealthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}

func (p *MockProvider) GetCapabilities() []string {
	return []string{"testing"}
}

func (p *MockProvider) EstimateCost(tokens int) float64 {
	return 0
}
