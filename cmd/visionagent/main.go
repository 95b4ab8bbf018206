// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the RenoScope Vision Agent.
//
// The Vision Agent analyzes kitchen photos: it detects appliances and
// surfaces, infers renovation materials and measurements, and narrates the
// scene through the LLM router.
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8081)
//	DETECTOR_ENDPOINT - remote object detection service URL (optional)
//	PHOTO_STORE_URL - s3://, gs:// or azblob:// bucket holding photos (optional)
//	BEDROCK_REGION - AWS Bedrock region (optional)
//	ANTHROPIC_API_KEY - Anthropic API key (optional)
//	OLLAMA_ENDPOINT - Ollama endpoint URL (optional)
//	AGENT_AUTH_SECRET - HMAC secret for verifying service tokens
package main

import (
	"github.com/joho/godotenv"

	"renoscope/platform/agents/vision"
)

func main() {
	_ = godotenv.Load()
	vision.Run()
}
