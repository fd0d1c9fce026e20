package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TitanProvider calls a Bedrock embedding model through the runtime invoke endpoint.
type TitanProvider struct {
	Endpoint string
	APIKey   string
	ModelID  string
	Dim      int
	Client   *http.Client
}

func NewTitanProvider(region, apiKey, modelID string, dim int) *TitanProvider {
	return &TitanProvider{
		Endpoint: fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region),
		APIKey:   apiKey,
		ModelID:  modelID,
		Dim:      dim,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type titanResponse struct {
	Embedding  []float64   `json:"embedding"`
	Embeddings [][]float64 `json:"embeddings"`
}

func (p *TitanProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"inputText": text})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/model/%s/invoke", p.Endpoint, url.PathEscape(p.ModelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("titan request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("titan error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var parsed titanResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	values := parsed.Embedding
	if len(values) == 0 && len(parsed.Embeddings) > 0 {
		values = parsed.Embeddings[0]
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("titan error: empty vector")
	}

	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return FitDim(vec, p.Dim), nil
}
