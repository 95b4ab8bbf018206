// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the RenoScope Cost Agent.
//
// The Cost Agent turns a material and measurement profile into a renovation
// cost breakdown in AUD, then runs its estimation crew to narrate the
// figures.
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8082)
//	RATE_TABLE_PATH - YAML rate table overriding the built-in rates (optional)
//	BEDROCK_REGION - AWS Bedrock region (optional)
//	ANTHROPIC_API_KEY - Anthropic API key (optional)
//	OLLAMA_ENDPOINT - Ollama endpoint URL (optional)
//	AGENT_AUTH_SECRET - HMAC secret for verifying service tokens
package main

import (
	"github.com/joho/godotenv"

	"renoscope/platform/agents/cost"
)

func main() {
	_ = godotenv.Load()
	cost.Run()
}
