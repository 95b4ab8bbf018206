// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"renoscope/platform/agents/vision"
	"renoscope/platform/auth"
	"renoscope/platform/orchestrator/costparse"
	"renoscope/platform/shared/logger"
	"renoscope/platform/shared/types"
)

const (
	agentVision = "vision"
	agentCost   = "cost"

	maxAgentAttempts  = 3
	agentRetryBackoff = 500 * time.Millisecond
)

type agentError struct {
	Agent      string
	StatusCode int
	Message    string
}

func (e *agentError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s agent: status %d: %s", e.Agent, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s agent: %s", e.Agent, e.Message)
}

type agentEntry struct {
	name     string
	endpoint string

	mu          sync.RWMutex
	healthy     bool
	lastChecked time.Time
}

func (a *agentEntry) setHealth(healthy bool) {
	a.mu.Lock()
	a.healthy = healthy
	a.lastChecked = time.Now().UTC()
	a.mu.Unlock()
}

func (a *agentEntry) status() AgentStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AgentStatus{
		Name:        a.name,
		Endpoint:    a.endpoint,
		Healthy:     a.healthy,
		LastChecked: a.lastChecked,
	}
}

// AgentClient calls the vision and cost agents over HTTP with service JWTs.
// Transient failures and 5xx responses are retried with a fixed backoff; a
// 401 invalidates the cached token and retries once with a fresh one.
type AgentClient struct {
	agents map[string]*agentEntry
	tokens *auth.TokenSource
	client *http.Client
	log    *logger.Logger
}

// NewAgentClient builds a client for the two agent runtimes.
func NewAgentClient(visionURL, costURL string, tokens *auth.TokenSource, timeout time.Duration) *AgentClient {
	return &AgentClient{
		agents: map[string]*agentEntry{
			agentVision: {name: agentVision, endpoint: visionURL},
			agentCost:   {name: agentCost, endpoint: costURL},
		},
		tokens: tokens,
		client: &http.Client{Timeout: timeout},
		log:    logger.New("orchestrator"),
	}
}

// AnalyzeScene runs photo analysis on the vision agent.
func (c *AgentClient) AnalyzeScene(ctx context.Context, req vision.AnalyzeRequest) (*types.SceneAnalysis, error) {
	var analysis types.SceneAnalysis
	if err := c.post(ctx, agentVision, "/api/v1/analyze", req, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

type estimatePayload struct {
	RequestID string `json:"request_id"`
	types.EstimateRequest
}

// EstimateCosts runs the renovation estimate on the cost agent. The returned
// breakdown is checked against the canonical schema before it is trusted.
func (c *AgentClient) EstimateCosts(ctx context.Context, requestID string, req types.EstimateRequest) (*types.EstimateResult, error) {
	var result types.EstimateResult
	payload := estimatePayload{RequestID: requestID, EstimateRequest: req}
	if err := c.post(ctx, agentCost, "/api/v1/estimate", payload, &result); err != nil {
		return nil, err
	}

	document, err := json.Marshal(map[string]types.CostBreakdown{"cost_breakdown": result.Breakdown})
	if err != nil {
		return nil, err
	}
	if err := costparse.ValidateBreakdownJSON(document); err != nil {
		return nil, &agentError{Agent: agentCost, Message: err.Error()}
	}
	return &result, nil
}

func (c *AgentClient) post(ctx context.Context, agent, path string, payload, out interface{}) error {
	entry, ok := c.agents[agent]
	if !ok {
		return fmt.Errorf("unknown agent %q", agent)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", agent, err)
	}

	var lastErr error
	refreshed := false
	for attempt := 1; attempt <= maxAgentAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(agentRetryBackoff * time.Duration(attempt-1)):
			}
		}

		status, respBody, err := c.doOnce(ctx, entry, path, body)
		if err != nil {
			lastErr = &agentError{Agent: agent, Message: err.Error()}
			entry.setHealth(false)
			continue
		}

		switch {
		case status == http.StatusOK:
			entry.setHealth(true)
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return &agentError{Agent: agent, StatusCode: status, Message: "malformed response: " + err.Error()}
			}
			return nil
		case status == http.StatusUnauthorized && !refreshed:
			// The cached token may have expired under us.
			c.tokens.Invalidate()
			refreshed = true
			attempt--
			continue
		case status >= 500:
			lastErr = &agentError{Agent: agent, StatusCode: status, Message: errorMessage(respBody)}
			entry.setHealth(false)
			continue
		default:
			entry.setHealth(true)
			return &agentError{Agent: agent, StatusCode: status, Message: errorMessage(respBody)}
		}
	}
	return lastErr
}

func (c *AgentClient) doOnce(ctx context.Context, entry *agentEntry, path string, body []byte) (int, []byte, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return 0, nil, fmt.Errorf("issue token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, entry.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// CheckHealth probes every agent's health endpoint and records the result.
func (c *AgentClient) CheckHealth(ctx context.Context) {
	for _, entry := range c.agents {
		healthy := c.probe(ctx, entry)
		entry.setHealth(healthy)
		if !healthy {
			c.log.Warn("", "agent health check failed", map[string]interface{}{
				"agent":    entry.name,
				"endpoint": entry.endpoint,
			})
		}
	}
}

func (c *AgentClient) probe(ctx context.Context, entry *agentEntry) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// StartHealthLoop probes agents at the given interval until ctx is done.
func (c *AgentClient) StartHealthLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		c.CheckHealth(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CheckHealth(ctx)
			}
		}
	}()
}

// Status reports every registered agent, sorted by name.
func (c *AgentClient) Status() []AgentStatus {
	statuses := make([]AgentStatus, 0, len(c.agents))
	for _, entry := range c.agents {
		statuses = append(statuses, entry.status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}
