// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renoscope/platform/agents/vision"
	"renoscope/platform/shared/types"
)

func TestAgentClientRetriesServerErrors(t *testing.T) {
	var calls int32
	scene := sceneFixture()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(scene)
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL, srv.URL, testTokens(), 5*time.Second)
	analysis, err := c.AnalyzeScene(context.Background(), vision.AnalyzeRequest{
		RequestID: "req-retry",
		ImageData: []byte("fake"),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 40.0, analysis.Measurements.TotalKitchenArea)
}

func TestAgentClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no kitchen detected"})
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL, srv.URL, testTokens(), 5*time.Second)
	_, err := c.AnalyzeScene(context.Background(), vision.AnalyzeRequest{ImageData: []byte("fake")})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Contains(t, err.Error(), "no kitchen detected")
	assert.Contains(t, err.Error(), "status 422")
}

func TestAgentClientRefreshesTokenOn401(t *testing.T) {
	var calls int32
	var tokens []string
	estimate := estimateFixture()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(estimate)
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL, srv.URL, testTokens(), 5*time.Second)
	result, err := c.EstimateCosts(context.Background(), "req-401", types.EstimateRequest{
		Measurements: types.Measurements{TotalKitchenArea: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, tokens, 2)
	assert.NotEmpty(t, tokens[0])
	assert.NotEmpty(t, tokens[1])
	assert.InDelta(t, 18512.13, result.Breakdown.FinalProjectTotal, 0.001)
}

func TestAgentClientRejectsInvalidBreakdown(t *testing.T) {
	bad := estimateFixture()
	bad.Breakdown.FinalProjectTotal = -18512.13
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bad)
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL, srv.URL, testTokens(), 5*time.Second)
	_, err := c.EstimateCosts(context.Background(), "req-bad", types.EstimateRequest{
		Measurements: types.Measurements{TotalKitchenArea: 40},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
	assert.Contains(t, err.Error(), "final_project_total")
}

func TestAgentClientTransportErrorMarksUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewAgentClient(srv.URL, srv.URL, testTokens(), time.Second)
	_, err := c.AnalyzeScene(context.Background(), vision.AnalyzeRequest{ImageData: []byte("x")})
	require.Error(t, err)

	for _, status := range c.Status() {
		assert.False(t, status.Healthy)
	}
}

func TestAgentClientHealthProbes(t *testing.T) {
	healthySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthySrv.Close()
	downSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer downSrv.Close()

	c := NewAgentClient(healthySrv.URL, downSrv.URL, testTokens(), time.Second)
	c.CheckHealth(context.Background())

	statuses := c.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, "cost", statuses[0].Name)
	assert.False(t, statuses[0].Healthy)
	assert.Equal(t, "vision", statuses[1].Name)
	assert.True(t, statuses[1].Healthy)
	assert.False(t, statuses[1].LastChecked.IsZero())
}
