// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"renoscope/platform/auth"
	"renoscope/platform/llm"
	"renoscope/platform/photostore"
	"renoscope/platform/shared/logger"
)

// Run starts the orchestrator service and blocks serving HTTP.
func Run() {
	cfg := LoadConfig()
	svcLog := logger.New("orchestrator")

	ctx := context.Background()

	secret, err := auth.LoadSigningSecret(ctx)
	if err != nil {
		log.Fatalf("Failed to load agent auth secret: %v", err)
	}
	issuer := auth.NewIssuer(secret, auth.DefaultTokenTTL)
	tokens := auth.NewTokenSource(issuer, "orchestrator", "analyze", "estimate")

	router := llm.NewRouter(cfg.LLM)
	router.StartHealthLoop(ctx, 30*time.Second)

	agents := NewAgentClient(cfg.VisionAgentURL, cfg.CostAgentURL, tokens, cfg.AgentTimeout)
	agents.StartHealthLoop(ctx, 30*time.Second)

	audit := NewAuditLogger(cfg.DatabaseURL)
	defer audit.Shutdown()

	metrics := NewMetricsCollector()

	var cache *SessionStore
	if cfg.RedisURL != "" {
		cache, err = NewSessionStore(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			svcLog.Warn("", "estimate cache unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			cache = nil
		} else {
			defer func() { _ = cache.Close() }()
		}
	}

	var photos photostore.Store
	if cfg.PhotoStoreURL != "" {
		photos, err = photostore.Open(ctx, cfg.PhotoStoreURL)
		if err != nil {
			svcLog.Warn("", "photo store unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			photos = nil
		}
	}

	pipeline := NewPipeline(agents, router, audit, metrics)
	server := NewServer(pipeline, agents, router, audit, metrics, cache, photos)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := c.Handler(server.Handler())

	log.Printf("RenoScope Orchestrator listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}
