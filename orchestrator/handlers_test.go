// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renoscope/platform/llm"
	"renoscope/platform/photostore"
)

func testServer(t *testing.T, cache *SessionStore) (*Server, func()) {
	t.Helper()

	visionSrv := visionAgentServer(t, sceneFixture())
	costSrv := costAgentServer(t, estimateFixture())

	agents := NewAgentClient(visionSrv.URL, costSrv.URL, testTokens(), 5*time.Second)
	agents.CheckHealth(context.Background())

	router := testRouter("renovation plan text")
	audit := NewAuditLogger("")
	metrics := NewMetricsCollector()
	pipeline := NewPipeline(agents, router, audit, metrics)

	srv := NewServer(pipeline, agents, router, audit, metrics, cache, nil)
	cleanup := func() {
		visionSrv.Close()
		costSrv.Close()
	}
	return srv, cleanup
}

func doRequest(handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleAnalyze(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()
	handler := srv.Handler()

	rec := doRequest(handler, http.MethodPost, "/api/v1/analyze", AnalysisRequest{
		RequestID: "req-http",
		ImageData: []byte("fake-jpeg"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalysisResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "req-http", resp.RequestID)
	assert.Equal(t, StatusCompleted, resp.Status)
	require.NotNil(t, resp.Estimate)
	assert.Equal(t, "renovation plan text", resp.Report)
	assert.Len(t, resp.Stages, 5)
}

func TestHandleAnalyzeRequiresPhoto(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()

	rec := doRequest(srv.Handler(), http.MethodPost, "/api/v1/analyze", AnalysisRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "photo_key or image_data")
}

func TestHandleAnalyzeRejectsBadBody(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuickAnalyze(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()

	rec := doRequest(srv.Handler(), http.MethodPost, "/api/v1/analyze/quick", AnalysisRequest{
		ImageData: []byte("fake-jpeg"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalysisResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Analysis)
	assert.Nil(t, resp.Estimate)
	assert.Empty(t, resp.Report)
}

func TestHandleHealth(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()

	rec := doRequest(srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health struct {
		Status     string          `json:"status"`
		Service    string          `json:"service"`
		Components map[string]bool `json:"components"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "renoscope-orchestrator", health.Service)
	assert.True(t, health.Components["agent_vision"])
	assert.True(t, health.Components["agent_cost"])
	assert.True(t, health.Components["audit_logger"])
}

func TestHandleMetricsSnapshot(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()
	handler := srv.Handler()

	rec := doRequest(handler, http.MethodPost, "/api/v1/analyze", AnalysisRequest{
		ImageData: []byte("fake-jpeg"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot MetricsSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	assert.Equal(t, int64(1), snapshot.TotalAnalyses)
	assert.Equal(t, int64(1), snapshot.CompletedAnalyses)
	require.Contains(t, snapshot.StageMetrics, StageDetect)
	assert.Equal(t, int64(1), snapshot.StageMetrics[StageDetect].SuccessCount)
}

func TestHandleAgentStatus(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()

	rec := doRequest(srv.Handler(), http.MethodGet, "/api/v1/agents/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agents []AgentStatus `json:"agents"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Agents, 2)
	assert.Equal(t, "cost", resp.Agents[0].Name)
	assert.Equal(t, "vision", resp.Agents[1].Name)
	assert.True(t, resp.Agents[0].Healthy)
	assert.True(t, resp.Agents[1].Healthy)
}

func TestHandleProviderStatusAndWeights(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()
	handler := srv.Handler()

	rec := doRequest(handler, http.MethodGet, "/api/v1/providers/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Providers []llm.ProviderStatus `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.NotEmpty(t, status.Providers)
	providerName := status.Providers[0].Name

	rec = doRequest(handler, http.MethodPut, "/api/v1/providers/weights", map[string]interface{}{
		"weights": map[string]float64{providerName: 0.9},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, http.MethodPut, "/api/v1/providers/weights", map[string]interface{}{
		"weights": map[string]float64{"nonexistent": 0.5},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(handler, http.MethodPut, "/api/v1/providers/weights", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetEstimateRoundTrip(t *testing.T) {
	cache, _ := testSessionStore(t)
	srv, cleanup := testServer(t, cache)
	defer cleanup()
	handler := srv.Handler()

	rec := doRequest(handler, http.MethodPost, "/api/v1/analyze", AnalysisRequest{
		RequestID: "req-cached",
		ImageData: []byte("fake-jpeg"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, http.MethodGet, "/api/v1/estimates/req-cached", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalysisResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "req-cached", resp.RequestID)
	require.NotNil(t, resp.Estimate)

	rec = doRequest(handler, http.MethodGet, "/api/v1/estimates/req-unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetEstimateWithoutCache(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()

	rec := doRequest(srv.Handler(), http.MethodGet, "/api/v1/estimates/req-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleUploadURLWithoutStore(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()

	rec := doRequest(srv.Handler(), http.MethodPost, "/api/v1/photos/upload-url", UploadURLRequest{
		FileName: "kitchen.jpg",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakePhotoStore struct {
	lastKey         string
	lastContentType string
}

func (f *fakePhotoStore) Put(ctx context.Context, key, contentType string, data io.Reader) error {
	return nil
}

func (f *fakePhotoStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, photostore.ErrNotFound
}

func (f *fakePhotoStore) Head(ctx context.Context, key string) (*photostore.ObjectInfo, error) {
	return nil, photostore.ErrNotFound
}

func (f *fakePhotoStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, time.Time, error) {
	f.lastKey = key
	f.lastContentType = contentType
	return "https://photos.test/" + key + "?sig=abc", time.Now().Add(expiry), nil
}

func TestHandleUploadURL(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()
	store := &fakePhotoStore{}
	srv.photos = store

	rec := doRequest(srv.Handler(), http.MethodPost, "/api/v1/photos/upload-url", UploadURLRequest{
		FileName:    "kitchen.png",
		ContentType: "image/png",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadURLResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, strings.HasPrefix(resp.PhotoKey, "uploads/"))
	assert.True(t, strings.HasSuffix(resp.PhotoKey, ".png"))
	assert.Equal(t, resp.PhotoKey, store.lastKey)
	assert.Equal(t, "image/png", store.lastContentType)
	assert.Contains(t, resp.UploadURL, resp.PhotoKey)
	assert.False(t, resp.ExpiresAt.IsZero())
}

func TestHandleUploadURLRequiresFileName(t *testing.T) {
	srv, cleanup := testServer(t, nil)
	defer cleanup()
	srv.photos = &fakePhotoStore{}

	rec := doRequest(srv.Handler(), http.MethodPost, "/api/v1/photos/upload-url", UploadURLRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
