// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrEstimateNotFound is returned when no cached analysis exists for the
// requested ID.
var ErrEstimateNotFound = errors.New("estimate not found")

// SessionStore caches finished analyses in Redis so clients can re-fetch an
// estimate by request ID without rerunning the pipeline.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore connects to Redis using a redis:// URL. The connection is
// verified with a short ping so misconfiguration surfaces at startup.
func NewSessionStore(redisURL string, ttl time.Duration) (*SessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &SessionStore{client: client, ttl: ttl}, nil
}

func estimateKey(requestID string) string {
	return "estimate:" + requestID
}

// Save caches a finished analysis under its request ID.
func (s *SessionStore) Save(ctx context.Context, result *AnalysisResponse) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := s.client.Set(ctx, estimateKey(result.RequestID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache analysis: %w", err)
	}
	return nil
}

// Get retrieves a cached analysis by request ID.
func (s *SessionStore) Get(ctx context.Context, requestID string) (*AnalysisResponse, error) {
	data, err := s.client.Get(ctx, estimateKey(requestID)).Bytes()
	if err == redis.Nil {
		return nil, ErrEstimateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch analysis: %w", err)
	}
	var result AnalysisResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode cached analysis: %w", err)
	}
	return &result, nil
}

// IsHealthy reports whether Redis responds to a ping.
func (s *SessionStore) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

// Close releases the Redis connection pool.
func (s *SessionStore) Close() error {
	return s.client.Close()
}
