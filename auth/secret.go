// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretValueAPI is the slice of the Secrets Manager client we use.
type secretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadSigningSecret resolves the shared HS256 signing secret.
//
// AGENT_AUTH_SECRET takes precedence and is used verbatim. Otherwise
// AGENT_AUTH_SECRET_ARN names a Secrets Manager secret holding either a raw
// string or a JSON object with a "signing_key" field.
func LoadSigningSecret(ctx context.Context) ([]byte, error) {
	if secret := os.Getenv("AGENT_AUTH_SECRET"); secret != "" {
		return []byte(secret), nil
	}

	arn := os.Getenv("AGENT_AUTH_SECRET_ARN")
	if arn == "" {
		return nil, fmt.Errorf("neither AGENT_AUTH_SECRET nor AGENT_AUTH_SECRET_ARN is set")
	}

	cfgOpts := []func(*config.LoadOptions) error{}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return fetchSigningSecret(ctx, secretsmanager.NewFromConfig(cfg), arn)
}

func fetchSigningSecret(ctx context.Context, client secretValueAPI, arn string) ([]byte, error) {
	log.Printf("[Auth] fetching signing secret %s from Secrets Manager", maskARN(arn))

	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", maskARN(arn), err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", maskARN(arn))
	}

	// JSON secrets carry the key under "signing_key"; anything else is
	// treated as the raw secret.
	var fields map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &fields); err == nil {
		if key, ok := fields["signing_key"]; ok && key != "" {
			return []byte(key), nil
		}
		return nil, fmt.Errorf("secret %s has no signing_key field", maskARN(arn))
	}
	return []byte(*result.SecretString), nil
}

// maskARN masks a secret ARN for logging, keeping only the last 8 characters.
func maskARN(arn string) string {
	if len(arn) <= 12 {
		return "***"
	}
	return "..." + arn[len(arn)-8:]
}
