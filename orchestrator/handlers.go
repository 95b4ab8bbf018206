// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"renoscope/platform/llm"
	"renoscope/platform/photostore"
	"renoscope/platform/shared/logger"
)

// Server holds the orchestrator's HTTP surface and the subsystems behind it.
// Optional subsystems (cache, photo store) are nil when not configured and
// their endpoints answer 503.
type Server struct {
	pipeline *Pipeline
	agents   *AgentClient
	router   *llm.Router
	audit    *AuditLogger
	metrics  *MetricsCollector
	cache    *SessionStore
	photos   photostore.Store
	log      *logger.Logger
}

// NewServer assembles the HTTP server. cache and photos may be nil.
func NewServer(pipeline *Pipeline, agents *AgentClient, router *llm.Router,
	audit *AuditLogger, metrics *MetricsCollector, cache *SessionStore, photos photostore.Store) *Server {
	return &Server{
		pipeline: pipeline,
		agents:   agents,
		router:   router,
		audit:    audit,
		metrics:  metrics,
		cache:    cache,
		photos:   photos,
		log:      logger.New("orchestrator"),
	}
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/api/v1/analyze", s.handleAnalyze).Methods("POST")
	r.HandleFunc("/api/v1/analyze/quick", s.handleQuickAnalyze).Methods("POST")
	r.HandleFunc("/api/v1/estimates/{id}", s.handleGetEstimate).Methods("GET")
	r.HandleFunc("/api/v1/photos/upload-url", s.handleUploadURL).Methods("POST")

	r.HandleFunc("/api/v1/agents/status", s.handleAgentStatus).Methods("GET")
	r.HandleFunc("/api/v1/providers/status", s.handleProviderStatus).Methods("GET")
	r.HandleFunc("/api/v1/providers/weights", s.handleUpdateWeights).Methods("PUT")
	r.HandleFunc("/api/v1/audit/{request_id}", s.handleAuditLookup).Methods("GET")

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]bool{
		"audit_logger": s.audit == nil || s.audit.IsHealthy(),
	}
	if s.cache != nil {
		components["estimate_cache"] = s.cache.IsHealthy()
	}
	for _, agent := range s.agents.Status() {
		components["agent_"+agent.Name] = agent.Healthy
	}

	status := "healthy"
	for _, ok := range components {
		if !ok {
			status = "degraded"
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"service":    "renoscope-orchestrator",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, false)
}

func (s *Server) handleQuickAnalyze(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, true)
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request, quick bool) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PhotoKey == "" && len(req.ImageData) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "photo_key or image_data is required"})
		return
	}
	req.QuickMode = quick

	resp, err := s.pipeline.Run(r.Context(), req)
	if err != nil && resp == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if s.cache != nil && resp.Status != StatusFailed {
		if err := s.cache.Save(r.Context(), resp); err != nil {
			s.log.Warn(resp.RequestID, "failed to cache analysis", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	status := http.StatusOK
	if resp.Status == StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "estimate cache not configured"})
		return
	}

	requestID := mux.Vars(r)["id"]
	resp, err := s.cache.Get(r.Context(), requestID)
	if errors.Is(err, ErrEstimateNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "estimate not found", "request_id": requestID})
		return
	}
	if err != nil {
		s.log.Error(requestID, "estimate lookup failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "estimate lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if s.photos == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "photo store not configured"})
		return
	}

	var req UploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.FileName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_name is required"})
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := path.Join("uploads", uuid.New().String()+path.Ext(req.FileName))
	uploadURL, expiresAt, err := s.photos.PresignPut(r.Context(), key, contentType, photostore.DefaultPresignExpiry)
	if err != nil {
		s.log.Error("", "presign upload failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create upload url"})
		return
	}

	writeJSON(w, http.StatusOK, UploadURLResponse{
		PhotoKey:  key,
		UploadURL: uploadURL,
		ExpiresAt: expiresAt,
	})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents":    s.agents.Status(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.router.Status(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Weights) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weights are required"})
		return
	}
	if err := s.router.UpdateWeights(req.Weights); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "updated",
		"providers": s.router.Status(),
	})
}

func (s *Server) handleAuditLookup(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := s.audit.RecentEntries(ctx, requestID, 50)
	if err != nil {
		s.log.Error(requestID, "audit lookup failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "audit lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": requestID,
		"entries":    entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
