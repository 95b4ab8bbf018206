// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renoscope/platform/auth"
	"renoscope/platform/llm"
	"renoscope/platform/shared/types"
)

func mockRouter(responses ...string) *llm.Router {
	r := llm.NewRouter(llm.Config{EnableMock: true})
	if len(responses) > 0 {
		mock := llm.NewMockProvider()
		mock.SetResponses(responses...)
		r.Register(mock, 1.0)
	}
	return r
}

func TestAnalyzeWithProvidedDetections(t *testing.T) {
	a := NewAnalyzer(NewHeuristicDetector(), mockRouter("looks like a solid mid-size kitchen"), nil)

	analysis, err := a.Analyze(context.Background(), AnalyzeRequest{
		RequestID: "req-1",
		Detections: []types.DetectedObject{
			{Name: "refrigerator", Confidence: 0.9, BBox: [4]int{0, 0, 220, 420}},
			{Name: "person", Confidence: 0.9, BBox: [4]int{0, 0, 100, 100}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", analysis.Status)
	require.Len(t, analysis.DetectedObjects, 1)
	assert.Len(t, analysis.Materials, 4)
	assert.Equal(t, 40.0, analysis.Measurements.TotalKitchenArea)
	assert.Equal(t, "looks like a solid mid-size kitchen", analysis.Narrative)
	assert.False(t, analysis.AnalyzedAt.IsZero())
}

func TestAnalyzeInlineImageWithHeuristicDetector(t *testing.T) {
	a := NewAnalyzer(NewHeuristicDetector(), mockRouter(), nil)

	analysis, err := a.Analyze(context.Background(), AnalyzeRequest{
		RequestID:     "req-2",
		ImageData:     []byte("fake jpeg bytes"),
		SkipNarrative: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "inline", analysis.ImageRef)
	assert.NotEmpty(t, analysis.DetectedObjects)
	assert.Empty(t, analysis.Narrative)
	assert.Equal(t, 3, analysis.Measurements.ApplianceCount)
}

func TestAnalyzeHeuristicDetectorIsDeterministic(t *testing.T) {
	a := NewAnalyzer(NewHeuristicDetector(), mockRouter(), nil)
	req := AnalyzeRequest{ImageData: []byte("same bytes"), SkipNarrative: true}

	first, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.DetectedObjects, second.DetectedObjects)
}

func TestAnalyzeRejectsEmptyRequest(t *testing.T) {
	a := NewAnalyzer(NewHeuristicDetector(), mockRouter(), nil)
	_, err := a.Analyze(context.Background(), AnalyzeRequest{})
	assert.Error(t, err)
}

func TestAnalyzeNarrativeFailureDegradesToPartial(t *testing.T) {
	r := llm.NewRouter(llm.Config{})
	failing := llm.NewMockProvider()
	failing.SetError(errors.New("model down"))
	// Leave the provider marked healthy so it gets selected and then fails.
	r.Register(failing, 1.0)

	a := NewAnalyzer(NewHeuristicDetector(), r, nil)
	analysis, err := a.Analyze(context.Background(), AnalyzeRequest{
		Detections: []types.DetectedObject{
			{Name: "oven", Confidence: 0.9, BBox: [4]int{0, 0, 180, 200}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "partial", analysis.Status)
	assert.Empty(t, analysis.Narrative)
}

func TestRemoteDetector(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = json.Marshal(r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": []map[string]interface{}{
				{"label": "oven", "score": 0.91, "box": []int{10, 20, 180, 200}},
				{"label": "sink", "score": 0.77, "box": []int{300, 40, 120, 90}},
			},
		})
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL)
	objects, err := d.Detect(context.Background(), []byte("imagebytes"))
	require.NoError(t, err)

	require.Len(t, objects, 2)
	assert.Equal(t, "oven", objects[0].Name)
	assert.Equal(t, 0.91, objects[0].Confidence)
	assert.Equal(t, [4]int{10, 20, 180, 200}, objects[0].BBox)
	assert.Contains(t, string(gotBody), "application/octet-stream")
}

func TestRemoteDetectorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemoteDetector(srv.URL).Detect(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestServerAnalyzeEndpoint(t *testing.T) {
	secret := []byte("vision-test-secret")
	issuer := auth.NewIssuer(secret, time.Minute)
	server := NewServer(NewAnalyzer(NewHeuristicDetector(), mockRouter(), nil), auth.NewVerifier(secret))
	handler := server.Handler()

	body, err := json.Marshal(AnalyzeRequest{ImageData: []byte("img"), SkipNarrative: true})
	require.NoError(t, err)

	t.Run("authorized", func(t *testing.T) {
		token, _, err := issuer.Issue("orchestrator")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var analysis types.SceneAnalysis
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
		assert.Equal(t, "completed", analysis.Status)
	})

	t.Run("unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
