// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"renoscope/platform/auth"
	"renoscope/platform/shared/logger"
)

// Server exposes the analyzer over HTTP for orchestrator invocations.
type Server struct {
	analyzer *Analyzer
	verifier *auth.Verifier
	log      *logger.Logger
}

func NewServer(analyzer *Analyzer, verifier *auth.Verifier) *Server {
	return &Server{
		analyzer: analyzer,
		verifier: verifier,
		log:      logger.New("vision-agent"),
	}
}

// Handler returns the routed handler with bearer auth applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analyze", s.handleAnalyze).Methods(http.MethodPost)
	return s.verifier.Middleware(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "vision-agent",
		"detector":  s.analyzer.detector.Name(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	analysis, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.log.ErrorWithStage(req.RequestID, "analyze", "analysis failed", err, nil)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":      err.Error(),
			"request_id": req.RequestID,
		})
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
