// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renoscope/platform/auth"
	"renoscope/platform/llm"
	"renoscope/platform/shared/types"
)

func crewRouter(mock *llm.MockProvider) *llm.Router {
	r := llm.NewRouter(llm.Config{EnableMock: true})
	r.Register(mock, 1.0)
	return r
}

func TestEstimateRunsCrewSequentially(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetResponses("materials report", "labor report", "synthesis report")

	e := NewEstimator(DefaultRates(), crewRouter(mock))
	result, err := e.Estimate(context.Background(), "req-1", standardRequest())
	require.NoError(t, err)

	assert.Equal(t, types.GradeStandard, result.Grade)
	assert.Equal(t, "materials report", result.RoleReports["materials_expert"])
	assert.Equal(t, "labor report", result.RoleReports["labor_analyst"])
	assert.Equal(t, "synthesis report", result.RoleReports["cost_synthesizer"])
	assert.False(t, result.EstimatedAt.IsZero())
	require.NoError(t, result.Breakdown.Validate())

	// Later roles see the earlier roles' outputs.
	queries := mock.Queries()
	require.Len(t, queries, 3)
	assert.NotContains(t, queries[0], "materials report")
	assert.Contains(t, queries[1], "materials report")
	assert.Contains(t, queries[2], "materials report")
	assert.Contains(t, queries[2], "labor report")
	// The synthesizer works from the computed breakdown.
	assert.Contains(t, queries[2], "final_project_total")
}

func TestEstimateSurvivesLLMFailure(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetError(errors.New("provider down"))

	e := NewEstimator(DefaultRates(), crewRouter(mock))
	result, err := e.Estimate(context.Background(), "req-2", standardRequest())
	require.NoError(t, err)

	assert.Empty(t, result.RoleReports)
	assert.Equal(t, 18512.13, result.Breakdown.FinalProjectTotal)
}

func TestLoadRatesDefaultsWhenNoFile(t *testing.T) {
	rates, err := LoadRates("")
	require.NoError(t, err)
	assert.Equal(t, 15, rates.ContingencyPercentage)

	rate, ok := rates.Rate(types.MaterialGranite, types.GradeStandard)
	require.True(t, ok)
	assert.Equal(t, 900.0, rate)
}

func TestLoadRatesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := []byte(`
materials:
  granite:
    premium: 2000
labor:
  tile:
    low: 70
    high: 100
contingency_percentage: 20
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	rates, err := LoadRates(path)
	require.NoError(t, err)

	// Overridden values.
	rate, ok := rates.Rate(types.MaterialGranite, types.GradePremium)
	require.True(t, ok)
	assert.Equal(t, 2000.0, rate)
	assert.Equal(t, LaborRange{Low: 70, High: 100}, rates.Labor.Tile)
	assert.Equal(t, 20, rates.ContingencyPercentage)

	// Untouched defaults survive.
	rate, ok = rates.Rate(types.MaterialGranite, types.GradeStandard)
	require.True(t, ok)
	assert.Equal(t, 900.0, rate)
	assert.Equal(t, LaborRange{Low: 80, High: 120}, rates.Labor.Cabinets)
}

func TestLoadRatesMissingFile(t *testing.T) {
	_, err := LoadRates("/nonexistent/rates.yaml")
	assert.Error(t, err)
}

func TestRateFallsBackToStandardGrade(t *testing.T) {
	rates := RateTable{
		Materials: map[types.MaterialType]map[types.MaterialGrade]float64{
			types.MaterialWood: {types.GradeStandard: 180},
		},
	}

	rate, ok := rates.Rate(types.MaterialWood, types.GradePremium)
	require.True(t, ok)
	assert.Equal(t, 180.0, rate)

	_, ok = rates.Rate(types.MaterialGranite, types.GradeStandard)
	assert.False(t, ok)
}

func TestServerEstimateEndpoint(t *testing.T) {
	secret := []byte("cost-test-secret")
	issuer := auth.NewIssuer(secret, time.Minute)

	mock := llm.NewMockProvider()
	mock.SetResponses("report")
	server := NewServer(NewEstimator(DefaultRates(), crewRouter(mock)), auth.NewVerifier(secret))
	handler := server.Handler()

	payload := estimateRequest{RequestID: "req-9", EstimateRequest: standardRequest()}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	t.Run("authorized", func(t *testing.T) {
		token, _, err := issuer.Issue("orchestrator")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var result types.EstimateResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 18512.13, result.Breakdown.FinalProjectTotal)
	})

	t.Run("unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid grade", func(t *testing.T) {
		bad := payload
		bad.Grade = "marble"
		badBody, err := json.Marshal(bad)
		require.NoError(t, err)

		token, _, err := issuer.Issue("orchestrator")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate", bytes.NewReader(badBody))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
