// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package llm provides the language-model provider layer shared by the
// orchestrator and the agent services. It defines a small provider interface,
// implementations for AWS Bedrock, the Anthropic API, and self-hosted Ollama,
// plus a weighted router with health checking and single-failover fallback.
//
// Bedrock is the primary provider: requests are signed with AWS Signature V4
// via the default credential chain, and request/response bodies are encoded
// per model family (anthropic, amazon titan, amazon nova, meta, mistral).
package llm
