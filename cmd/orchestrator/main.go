// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the RenoScope Orchestrator service.
//
// The Orchestrator coordinates the renovation analysis pipeline:
// - Sends kitchen photos to the vision agent for detection
// - Requests cost estimates from the cost agent
// - Generates recommendations and synthesizes the final report
// - Caches finished estimates and audits every pipeline stage
//
// Usage:
//
//	./orchestrator
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	VISION_AGENT_URL - vision agent base URL (default: http://localhost:8081)
//	COST_AGENT_URL - cost agent base URL (default: http://localhost:8082)
//	DATABASE_URL - PostgreSQL connection string for audit logging (optional)
//	REDIS_URL - Redis connection string for the estimate cache (optional)
//	PHOTO_STORE_URL - s3://, gs:// or azblob:// bucket for photo uploads (optional)
//	BEDROCK_REGION - AWS Bedrock region (optional)
//	ANTHROPIC_API_KEY - Anthropic API key (optional)
//	OLLAMA_ENDPOINT - Ollama endpoint URL (optional)
//	AGENT_AUTH_SECRET - HMAC secret for service tokens
package main

import (
	"github.com/joho/godotenv"

	"renoscope/platform/orchestrator"
)

func main() {
	_ = godotenv.Load()
	orchestrator.Run()
}
