// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultBedrockRegion and DefaultBedrockModel are used when the
// corresponding Config fields are empty.
const (
	DefaultBedrockRegion = "us-west-2"
	DefaultBedrockModel  = "us.amazon.nova-premier-v1:0"
)

// bedrockInvoker is the slice of the Bedrock runtime client we use.
// Satisfied by *bedrockruntime.Client and by test fakes.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider calls AWS Bedrock foundation models through InvokeModel.
// Auth is AWS Signature V4 via the default credential chain.
type BedrockProvider struct {
	client  bedrockInvoker
	region  string
	model   string
	healthy bool
}

// NewBedrockProvider loads the default AWS config for the region and returns
// a provider bound to the given default model.
func NewBedrockProvider(region, model string) (*BedrockProvider, error) {
	if region == "" {
		region = DefaultBedrockRegion
	}
	if model == "" {
		model = DefaultBedrockModel
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", region, err)
	}

	log.Printf("[Bedrock] initialized (region: %s, model: %s)", region, model)
	return &BedrockProvider{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		region:  region,
		model:   model,
		healthy: true,
	}, nil
}

func (p *BedrockProvider) Name() string {
	return "bedrock"
}

func (p *BedrockProvider) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	start := time.Now()

	model := options.Model
	if model == "" {
		model = p.model
	}

	requestBody, err := buildBedrockRequest(prompt, options, model)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		p.healthy = false
		log.Printf("[Bedrock] API call failed: %v", err)
		return nil, fmt.Errorf("bedrock API error: %w", err)
	}

	p.healthy = true

	response, err := parseBedrockResponse(output.Body, model)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	response.Model = model
	response.ResponseTime = time.Since(start)
	response.Metadata["provider"] = "bedrock"
	response.Metadata["region"] = p.region

	return response, nil
}

func (p *BedrockProvider) IsHealthy() bool {
	return p.healthy && p.region != ""
}

func (p *BedrockProvider) GetCapabilities() []string {
	return []string{"reasoning", "analysis", "writing", "vision"}
}

func (p *BedrockProvider) EstimateCost(tokens int) float64 {
	// Blended Bedrock on-demand rate across the model families we route to.
	return float64(tokens) * 0.00003
}

// inferenceProfilePrefixes are the known Bedrock inference profile prefixes.
var inferenceProfilePrefixes = []string{"eu", "us", "apac", "global"}

// supportedBedrockFamilies are the model families we know how to encode for.
var supportedBedrockFamilies = []string{"anthropic", "amazon", "meta", "mistral"}

// detectBedrockModelFamily extracts the model family from a model ID.
//
// Model IDs follow the pattern provider.model-name-version, for example
// anthropic.claude-3-5-sonnet-20240620-v1:0 or amazon.nova-premier-v1:0.
// Inference profile IDs carry a regional prefix, for example
// us.amazon.nova-premier-v1:0 or eu.anthropic.claude-sonnet-4-20250514-v1:0.
func detectBedrockModelFamily(modelID string) string {
	if modelID == "" {
		return ""
	}

	segments := strings.Split(modelID, ".")
	if len(segments) < 2 {
		return ""
	}

	first := segments[0]
	for _, prefix := range inferenceProfilePrefixes {
		if first == prefix {
			return validateBedrockFamily(segments[1])
		}
	}
	return validateBedrockFamily(first)
}

func validateBedrockFamily(family string) string {
	for _, supported := range supportedBedrockFamilies {
		if family == supported {
			return family
		}
	}
	return ""
}

// isNovaModel reports whether an amazon-family model ID is a Nova model.
// Nova uses a messages-based schema that is incompatible with Titan's.
func isNovaModel(modelID string) bool {
	return strings.Contains(modelID, "nova")
}

// buildBedrockRequest encodes the InvokeModel body for the model's family.
func buildBedrockRequest(prompt string, options QueryOptions, model string) (map[string]interface{}, error) {
	family := detectBedrockModelFamily(model)

	switch family {
	case "anthropic":
		req := map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        options.MaxTokens,
			"temperature":       options.Temperature,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
		}
		if options.SystemPrompt != "" {
			req["system"] = options.SystemPrompt
		}
		return req, nil
	case "amazon":
		if isNovaModel(model) {
			req := map[string]interface{}{
				"messages": []map[string]interface{}{
					{
						"role":    "user",
						"content": []map[string]string{{"text": prompt}},
					},
				},
				"inferenceConfig": map[string]interface{}{
					"maxTokens":   options.MaxTokens,
					"temperature": options.Temperature,
					"topP":        0.9,
				},
			}
			if options.SystemPrompt != "" {
				req["system"] = []map[string]string{{"text": options.SystemPrompt}}
			}
			return req, nil
		}
		return map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": options.MaxTokens,
				"temperature":   options.Temperature,
				"topP":          0.9,
			},
		}, nil
	case "meta":
		return map[string]interface{}{
			"prompt":      prompt,
			"max_gen_len": options.MaxTokens,
			"temperature": options.Temperature,
			"top_p":       0.9,
		}, nil
	case "mistral":
		return map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  options.MaxTokens,
			"temperature": options.Temperature,
			"top_p":       0.9,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model family in %q", model)
	}
}

// parseBedrockResponse decodes the InvokeModel body for the model's family.
func parseBedrockResponse(body []byte, model string) (*Response, error) {
	switch family := detectBedrockModelFamily(model); family {
	case "anthropic":
		return parseAnthropicBody(body)
	case "amazon":
		if isNovaModel(model) {
			return parseNovaBody(body)
		}
		return parseTitanBody(body)
	case "meta":
		return parseLlamaBody(body)
	case "mistral":
		return parseMistralBody(body)
	default:
		return nil, fmt.Errorf("unsupported model family in %q", model)
	}
}

func parseAnthropicBody(body []byte) (*Response, error) {
	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	content := ""
	if len(resp.Content) > 0 {
		content = resp.Content[0].Text
	}
	return &Response{
		Content:    content,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Metadata: map[string]interface{}{
			"prompt_tokens":     resp.Usage.InputTokens,
			"completion_tokens": resp.Usage.OutputTokens,
		},
	}, nil
}

func parseNovaBody(body []byte) (*Response, error) {
	var resp struct {
		Output struct {
			Message struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		} `json:"output"`
		Usage struct {
			InputTokens  int `json:"inputTokens"`
			OutputTokens int `json:"outputTokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	content := ""
	if len(resp.Output.Message.Content) > 0 {
		content = resp.Output.Message.Content[0].Text
	}
	return &Response{
		Content:    content,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Metadata: map[string]interface{}{
			"prompt_tokens":     resp.Usage.InputTokens,
			"completion_tokens": resp.Usage.OutputTokens,
		},
	}, nil
}

func parseTitanBody(body []byte) (*Response, error) {
	var resp struct {
		Results []struct {
			OutputText string `json:"outputText"`
			TokenCount int    `json:"tokenCount"`
		} `json:"results"`
		InputTextTokenCount int `json:"inputTextTokenCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	content := ""
	outputTokens := 0
	if len(resp.Results) > 0 {
		content = resp.Results[0].OutputText
		outputTokens = resp.Results[0].TokenCount
	}
	return &Response{
		Content:    content,
		TokensUsed: resp.InputTextTokenCount + outputTokens,
		Metadata: map[string]interface{}{
			"prompt_tokens":     resp.InputTextTokenCount,
			"completion_tokens": outputTokens,
		},
	}, nil
}

func parseLlamaBody(body []byte) (*Response, error) {
	var resp struct {
		Generation           string `json:"generation"`
		PromptTokenCount     int    `json:"prompt_token_count"`
		GenerationTokenCount int    `json:"generation_token_count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &Response{
		Content:    resp.Generation,
		TokensUsed: resp.PromptTokenCount + resp.GenerationTokenCount,
		Metadata: map[string]interface{}{
			"prompt_tokens":     resp.PromptTokenCount,
			"completion_tokens": resp.GenerationTokenCount,
		},
	}, nil
}

func parseMistralBody(body []byte) (*Response, error) {
	var resp struct {
		Outputs []struct {
			Text string `json:"text"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	content := ""
	if len(resp.Outputs) > 0 {
		content = resp.Outputs[0].Text
	}
	return &Response{
		Content:  content,
		Metadata: map[string]interface{}{},
	}, nil
}
