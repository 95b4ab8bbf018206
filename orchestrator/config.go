// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"os"
	"strconv"
	"time"

	"renoscope/platform/llm"
)

// Config collects everything the orchestrator needs at startup. All fields
// come from the environment; zero values disable the optional subsystems
// (audit database, estimate cache, photo store).
type Config struct {
	Port string

	VisionAgentURL string
	CostAgentURL   string

	// DatabaseURL enables audit logging when set (postgres:// DSN).
	DatabaseURL string
	// RedisURL enables the estimate cache when set (redis:// DSN).
	RedisURL string
	// CacheTTL bounds how long finished analyses stay retrievable.
	CacheTTL time.Duration

	// PhotoStoreURL enables presigned photo uploads (s3://, gs:// or
	// azblob:// bucket URL).
	PhotoStoreURL string

	// AgentTimeout bounds a single agent HTTP call.
	AgentTimeout time.Duration

	LLM llm.Config
}

// LoadConfig reads the orchestrator configuration from the environment.
func LoadConfig() Config {
	return Config{
		Port:           getEnv("PORT", "8080"),
		VisionAgentURL: getEnv("VISION_AGENT_URL", "http://localhost:8081"),
		CostAgentURL:   getEnv("COST_AGENT_URL", "http://localhost:8082"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		CacheTTL:       getEnvDuration("ESTIMATE_CACHE_TTL", 24*time.Hour),
		PhotoStoreURL:  os.Getenv("PHOTO_STORE_URL"),
		AgentTimeout:   getEnvDuration("AGENT_TIMEOUT", 120*time.Second),
		LLM: llm.Config{
			BedrockRegion:  os.Getenv("BEDROCK_REGION"),
			BedrockModel:   os.Getenv("BEDROCK_MODEL"),
			AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel: os.Getenv("ANTHROPIC_MODEL"),
			OllamaEndpoint: os.Getenv("OLLAMA_ENDPOINT"),
			OllamaModel:    os.Getenv("OLLAMA_MODEL"),
			EnableMock:     os.Getenv("ENABLE_MOCK_LLM") == "true",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
