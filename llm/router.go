// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Router owns the configured providers and picks one per query using
// weighted random selection over the healthy set, with a single failover
// attempt when the chosen provider errors.
type Router struct {
	providers map[string]Provider
	weights   map[string]float64
	balancer  *loadBalancer
	metrics   *metricsTracker
	mu        sync.RWMutex
}

// NewRouter initializes providers from config. Providers that fail to
// initialize are skipped with a log line rather than failing startup.
func NewRouter(cfg Config) *Router {
	r := &Router{
		providers: make(map[string]Provider),
		weights:   make(map[string]float64),
		balancer:  newLoadBalancer(),
		metrics:   newMetricsTracker(),
	}

	if cfg.BedrockRegion != "" {
		provider, err := NewBedrockProvider(cfg.BedrockRegion, cfg.BedrockModel)
		if err != nil {
			log.Printf("[Router] ERROR: failed to initialize Bedrock provider: %v", err)
		} else {
			r.Register(provider, 0.6)
		}
	}

	if cfg.AnthropicKey != "" {
		r.Register(NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel), 0.3)
	}

	if cfg.OllamaEndpoint != "" {
		r.Register(NewOllamaProvider(cfg.OllamaEndpoint, cfg.OllamaModel), 0.1)
	}

	if cfg.EnableMock || len(r.providers) == 0 {
		if len(r.providers) == 0 && !cfg.EnableMock {
			log.Printf("[Router] WARNING: no providers configured, falling back to mock")
		}
		r.Register(NewMockProvider(), 0.1)
	}

	return r
}

// Register adds a provider with the given selection weight, replacing any
// provider of the same name.
func (r *Router) Register(p Provider, weight float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.weights[p.Name()] = weight
}

// Query routes a prompt to a weighted-random healthy provider. On provider
// error it retries once against a different healthy provider before giving up.
func (r *Router) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, *RouteInfo, error) {
	provider, err := r.selectProvider("")
	if err != nil {
		return nil, nil, err
	}
	return r.queryWithFailover(ctx, provider, prompt, options)
}

// QueryProvider routes a prompt to the named provider, bypassing selection.
func (r *Router) QueryProvider(ctx context.Context, name, prompt string, options QueryOptions) (*Response, *RouteInfo, error) {
	r.mu.RLock()
	provider, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return r.queryWithFailover(ctx, provider, prompt, options)
}

func (r *Router) queryWithFailover(ctx context.Context, provider Provider, prompt string, options QueryOptions) (*Response, *RouteInfo, error) {
	start := time.Now()

	response, err := provider.Query(ctx, prompt, options)
	if err != nil {
		r.metrics.recordError(provider.Name())

		fallback, ferr := r.selectProvider(provider.Name())
		if ferr != nil {
			return nil, nil, fmt.Errorf("provider %s failed and no fallback available: %w", provider.Name(), err)
		}
		log.Printf("[Router] failing over from %s to %s: %v", provider.Name(), fallback.Name(), err)

		response, err = fallback.Query(ctx, prompt, options)
		if err != nil {
			r.metrics.recordError(fallback.Name())
			return nil, nil, fmt.Errorf("all providers failed: %w", err)
		}
		provider = fallback
	}

	elapsed := time.Since(start)
	r.metrics.recordSuccess(provider.Name(), elapsed)

	info := &RouteInfo{
		Provider:       provider.Name(),
		Model:          response.Model,
		ResponseTimeMs: elapsed.Milliseconds(),
		TokensUsed:     response.TokensUsed,
		Cost:           provider.EstimateCost(response.TokensUsed),
	}
	return response, info, nil
}

// selectProvider picks a weighted-random healthy provider, excluding the
// named one. Pass "" to exclude nothing.
func (r *Router) selectProvider(exclude string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}

	var healthy []string
	for name, p := range r.providers {
		if name != exclude && p.IsHealthy() {
			healthy = append(healthy, name)
		}
	}
	if len(healthy) == 0 {
		return nil, ErrNoHealthyProvider
	}
	sort.Strings(healthy)

	name := r.balancer.pick(healthy, r.weights)
	return r.providers[name], nil
}

// UpdateWeights replaces selection weights for the named providers.
// Unknown names are rejected; weights must be non-negative.
func (r *Router) UpdateWeights(weights map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, w := range weights {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		if w < 0 {
			return fmt.Errorf("weight for %s must be non-negative, got %v", name, w)
		}
	}
	for name, w := range weights {
		r.weights[name] = w
	}
	return nil
}

// Status returns per-provider health, weight, and usage counters sorted by
// provider name.
func (r *Router) Status() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(r.providers))
	for name, p := range r.providers {
		m := r.metrics.snapshot(name)
		out = append(out, ProviderStatus{
			Name:         name,
			Healthy:      p.IsHealthy(),
			Weight:       r.weights[name],
			RequestCount: m.requests,
			ErrorCount:   m.errors,
			AvgLatency:   m.avgLatencyMS,
			LastUsed:     m.lastUsed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasHealthyProvider reports whether at least one provider is healthy.
func (r *Router) HasHealthyProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.IsHealthy() {
			return true
		}
	}
	return false
}

// StartHealthLoop logs unhealthy providers every interval until ctx is done.
func (r *Router) StartHealthLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range r.Status() {
					if !s.Healthy {
						log.Printf("[Router] provider %s unhealthy (errors=%d)", s.Name, s.ErrorCount)
					}
				}
			}
		}
	}()
}

// loadBalancer does weighted random selection across provider names.
type loadBalancer struct {
	mu     sync.Mutex
	random *rand.Rand
}

func newLoadBalancer() *loadBalancer {
	return &loadBalancer{random: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *loadBalancer) pick(names []string, weights map[string]float64) string {
	total := 0.0
	for _, n := range names {
		total += weights[n]
	}
	if total <= 0 {
		return names[0]
	}

	l.mu.Lock()
	r := l.random.Float64() * total
	l.mu.Unlock()

	for _, n := range names {
		r -= weights[n]
		if r <= 0 {
			return n
		}
	}
	return names[len(names)-1]
}

type providerMetrics struct {
	requests     int64
	errors       int64
	avgLatencyMS float64
	lastUsed     time.Time
}

type metricsTracker struct {
	mu      sync.Mutex
	metrics map[string]*providerMetrics
}

func newMetricsTracker() *metricsTracker {
	return &metricsTracker{metrics: make(map[string]*providerMetrics)}
}

func (t *metricsTracker) get(name string) *providerMetrics {
	if _, ok := t.metrics[name]; !ok {
		t.metrics[name] = &providerMetrics{}
	}
	return t.metrics[name]
}

func (t *metricsTracker) recordSuccess(name string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.get(name)
	// Running average over all successful calls.
	totalMS := m.avgLatencyMS*float64(m.requests) + float64(latency.Milliseconds())
	m.requests++
	m.avgLatencyMS = totalMS / float64(m.requests)
	m.lastUsed = time.Now()
}

func (t *metricsTracker) recordError(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.get(name)
	m.errors++
	m.lastUsed = time.Now()
}

func (t *metricsTracker) snapshot(name string) providerMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.get(name)
}
