package factory

import (
	"fmt"
	"time"

	"sentinel-be/pkg/llm"
	"sentinel-be/pkg/llm/bedrock"
	"sentinel-be/pkg/llm/ollama"
)

type ProviderConfig struct {
	Type      string
	ModelName string
	BaseURL   string
	Region    string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration
}

// NewLLMProvider returns nil, nil when no provider type is configured so
// callers run on local fallbacks only.
func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "bedrock":
		p := bedrock.NewProvider(cfg.Region, cfg.APIKey, cfg.ModelName, cfg.MaxTokens, cfg.Timeout)
		if cfg.BaseURL != "" {
			p.Endpoint = cfg.BaseURL
		}
		return p, nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.ModelName, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
