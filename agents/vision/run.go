// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"renoscope/platform/auth"
	"renoscope/platform/llm"
	"renoscope/platform/photostore"
	"renoscope/platform/shared/logger"
)

// Run starts the vision agent service and blocks serving HTTP.
func Run() {
	svcLog := logger.New("vision-agent")
	ctx := context.Background()

	secret, err := auth.LoadSigningSecret(ctx)
	if err != nil {
		log.Fatalf("Failed to load agent auth secret: %v", err)
	}
	verifier := auth.NewVerifier(secret)

	var detector ObjectDetector
	if endpoint := os.Getenv("DETECTOR_ENDPOINT"); endpoint != "" {
		detector = NewRemoteDetector(endpoint)
	} else {
		svcLog.Warn("", "DETECTOR_ENDPOINT not set, using heuristic detector", nil)
		detector = NewHeuristicDetector()
	}

	router := llm.NewRouter(llm.Config{
		BedrockRegion:  os.Getenv("BEDROCK_REGION"),
		BedrockModel:   os.Getenv("BEDROCK_MODEL"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel: os.Getenv("ANTHROPIC_MODEL"),
		OllamaEndpoint: os.Getenv("OLLAMA_ENDPOINT"),
		OllamaModel:    os.Getenv("OLLAMA_MODEL"),
		EnableMock:     os.Getenv("ENABLE_MOCK_LLM") == "true",
	})
	router.StartHealthLoop(ctx, 30*time.Second)

	var store photostore.Store
	if storeURL := os.Getenv("PHOTO_STORE_URL"); storeURL != "" {
		store, err = photostore.Open(ctx, storeURL)
		if err != nil {
			svcLog.Warn("", "photo store unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			store = nil
		}
	}

	server := NewServer(NewAnalyzer(detector, router, store), verifier)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	log.Printf("RenoScope Vision Agent listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, server.Handler()))
}
