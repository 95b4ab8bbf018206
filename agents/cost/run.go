// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"renoscope/platform/auth"
	"renoscope/platform/llm"
	"renoscope/platform/shared/logger"
)

// Run starts the cost agent service and blocks serving HTTP.
func Run() {
	svcLog := logger.New("cost-agent")
	ctx := context.Background()

	secret, err := auth.LoadSigningSecret(ctx)
	if err != nil {
		log.Fatalf("Failed to load agent auth secret: %v", err)
	}
	verifier := auth.NewVerifier(secret)

	rates := DefaultRates()
	if ratesPath := os.Getenv("RATE_TABLE_PATH"); ratesPath != "" {
		rates, err = LoadRates(ratesPath)
		if err != nil {
			log.Fatalf("Failed to load rate table %s: %v", ratesPath, err)
		}
		svcLog.Info("", "loaded rate table overrides", map[string]interface{}{
			"path": ratesPath,
		})
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

	server := NewServer(NewEstimator(rates, router), verifier)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}
	log.Printf("RenoScope Cost Agent listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, server.Handler()))
}
