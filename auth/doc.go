// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

// Package auth implements bearer-token authentication between the
// orchestrator and the agent runtimes. Tokens are HS256 JWTs signed with a
// shared secret loaded from the environment or AWS Secrets Manager. The
// orchestrator holds a TokenSource that refreshes before expiry; agents wrap
// their handlers with Middleware.
package auth
