package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sentinel-be/pkg/llm"
)

// Provider invokes Bedrock runtime models with a bearer API key.
type Provider struct {
	Endpoint  string
	APIKey    string
	ModelID   string
	MaxTokens int
	Client    *http.Client
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(region, apiKey, modelID string, maxTokens int, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		Endpoint:  fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region),
		APIKey:    apiKey,
		ModelID:   modelID,
		MaxTokens: maxTokens,
		Client:    &http.Client{Timeout: timeout},
	}
}

type novaContent struct {
	Text string `json:"text"`
}

type novaMessage struct {
	Role    string        `json:"role"`
	Content []novaContent `json:"content"`
}

type novaRequest struct {
	SchemaVersion   string        `json:"schemaVersion"`
	Messages        []novaMessage `json:"messages"`
	InferenceConfig struct {
		MaxTokens   int     `json:"maxTokens"`
		Temperature float64 `json:"temperature"`
	} `json:"inferenceConfig"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	Messages         []anthropicMessage `json:"messages"`
}

// RequestBody picks the body shape from the model family.
func RequestBody(modelID string, history []llm.Message, opts llm.Options) interface{} {
	if strings.Contains(modelID, "amazon.nova") {
		req := novaRequest{SchemaVersion: "messages-v1"}
		for _, m := range history {
			req.Messages = append(req.Messages, novaMessage{Role: bedrockRole(m.Role), Content: []novaContent{{Text: m.Content}}})
		}
		req.InferenceConfig.MaxTokens = opts.MaxTokens
		req.InferenceConfig.Temperature = opts.Temperature
		return req
	}
	req := anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
	}
	for _, m := range history {
		req.Messages = append(req.Messages, anthropicMessage{Role: bedrockRole(m.Role), Content: m.Content})
	}
	return req
}

func bedrockRole(role string) string {
	if role == "model" || role == "assistant" {
		return "assistant"
	}
	return "user"
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.1, MaxTokens: p.MaxTokens, Model: p.ModelID}, opts...)

	body, err := json.Marshal(RequestBody(options.Model, history, options))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/model/%s/invoke", p.Endpoint, url.PathEscape(options.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("bedrock request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &llm.StatusError{Provider: "bedrock", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return ResponseText(payload), nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// ResponseText pulls the generated text out of any of the model families'
// response shapes, falling back to the raw JSON.
func ResponseText(payload map[string]interface{}) string {
	if output, ok := payload["output"].(map[string]interface{}); ok {
		msg, _ := output["message"].(map[string]interface{})
		if parts := textBlocks(msg["content"]); len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	if content, ok := payload["content"].([]interface{}); ok {
		return strings.Join(textBlocks(content), "\n")
	}

	if results, ok := payload["results"].([]interface{}); ok && len(results) > 0 {
		if first, ok := results[0].(map[string]interface{}); ok {
			if text, _ := first["outputText"].(string); text != "" {
				return text
			}
		}
	}

	if output, ok := payload["output"]; ok && output != nil && output != "" {
		if s, ok := output.(string); ok {
			return s
		}
		data, _ := json.Marshal(output)
		return string(data)
	}

	data, _ := json.Marshal(payload)
	return string(data)
}

func textBlocks(content interface{}) []string {
	blocks, _ := content.([]interface{})
	var parts []string
	for _, b := range blocks {
		block, ok := b.(map[string]interface{})
		if !ok {
			continue
		}
		if text, _ := block["text"].(string); text != "" {
			parts = append(parts, text)
		}
	}
	return parts
}
