// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"renoscope/platform/auth"
	"renoscope/platform/shared/logger"
	"renoscope/platform/shared/types"
)

// Server exposes the estimator over HTTP for orchestrator invocations.
type Server struct {
	estimator *Estimator
	verifier  *auth.Verifier
	log       *logger.Logger
}

func NewServer(estimator *Estimator, verifier *auth.Verifier) *Server {
	return &Server{
		estimator: estimator,
		verifier:  verifier,
		log:       logger.New("cost-agent"),
	}
}

// Handler returns the routed handler with bearer auth applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/estimate", s.handleEstimate).Methods(http.MethodPost)
	return s.verifier.Middleware(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "cost-agent",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// estimateRequest wraps the shared estimate payload with a request ID for
// log correlation across services.
type estimateRequest struct {
	RequestID string `json:"request_id"`
	types.EstimateRequest
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	if req.Grade != "" {
		if _, err := types.ParseGrade(string(req.Grade)); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":      err.Error(),
				"request_id": req.RequestID,
			})
			return
		}
	}

	result, err := s.estimator.Estimate(r.Context(), req.RequestID, req.EstimateRequest)
	if err != nil {
		s.log.ErrorWithStage(req.RequestID, "estimate", "estimation failed", err, nil)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":      err.Error(),
			"request_id": req.RequestID,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
