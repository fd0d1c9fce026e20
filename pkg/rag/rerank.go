package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

type RankedResult struct {
	Index int
	Score float64
}

// RerankClient scores documents against a query remotely.
type RerankClient interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RankedResult, error)
}

// Reranker reorders hits with a remote model when one is configured and
// falls back to a local similarity sort on any failure.
type Reranker struct {
	client RerankClient
	logger *log.Logger
}

func NewReranker(client RerankClient, logger *log.Logger) *Reranker {
	if logger == nil {
		logger = log.Default()
	}
	return &Reranker{client: client, logger: logger}
}

func (r *Reranker) Rerank(ctx context.Context, query string, hits []Hit, topK int) []Hit {
	if len(hits) == 0 {
		return hits
	}
	if topK <= 0 {
		topK = len(hits)
	}

	if r.client != nil {
		out, err := r.remote(ctx, query, hits, topK)
		if err == nil {
			return out
		}
		r.logger.Printf("[WARN] Remote rerank failed, falling back to local sort: %v", err)
	}
	return LocalRerank(hits, topK)
}

func (r *Reranker) remote(ctx context.Context, query string, hits []Hit, topK int) ([]Hit, error) {
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = payloadText(h.Payload)
	}
	n := topK
	if n > len(docs) {
		n = len(docs)
	}

	ranked, err := r.client.Rerank(ctx, query, docs, n)
	if err != nil {
		return nil, err
	}

	out := make([]Hit, 0, len(ranked))
	for _, res := range ranked {
		if res.Index < 0 || res.Index >= len(hits) {
			return nil, fmt.Errorf("rerank index %d out of range", res.Index)
		}
		h := hits[res.Index]
		score := res.Score
		h.RerankScore = &score
		out = append(out, h)
	}
	return out, nil
}

// LocalRerank sorts by similarity, then by payload size, both descending.
func LocalRerank(hits []Hit, topK int) []Hit {
	out := append([]Hit(nil), hits...)
	sizes := make(map[int]int, len(out))
	for i := range out {
		sizes[i] = len(payloadText(out[i].Payload))
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ha, hb := out[idx[a]], out[idx[b]]
		if ha.Similarity != hb.Similarity {
			return ha.Similarity > hb.Similarity
		}
		return sizes[idx[a]] > sizes[idx[b]]
	})

	sorted := make([]Hit, 0, len(out))
	for _, i := range idx {
		sorted = append(sorted, out[i])
	}
	if topK > 0 && len(sorted) > topK {
		sorted = sorted[:topK]
	}
	return sorted
}

func payloadText(p map[string]interface{}) string {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprint(p)
	}
	return string(data)
}

// BedrockRerankClient talks to either the Cohere rerank model through the
// runtime invoke endpoint or the Amazon rerank model through the agent
// runtime, depending on the model id.
type BedrockRerankClient struct {
	Region   string
	APIKey   string
	ModelID  string
	Endpoint string // overrides the regional host, used by tests
	Client   *http.Client
}

func NewBedrockRerankClient(region, apiKey, modelID string) *BedrockRerankClient {
	return &BedrockRerankClient{
		Region:  region,
		APIKey:  apiKey,
		ModelID: modelID,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *BedrockRerankClient) Rerank(ctx context.Context, query string, documents []string, topN int) ([]RankedResult, error) {
	if strings.Contains(c.ModelID, "amazon.rerank") {
		return c.rerankAmazon(ctx, query, documents, topN)
	}
	return c.rerankCohere(ctx, query, documents, topN)
}

func (c *BedrockRerankClient) host(service string) string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.%s.amazonaws.com", service, c.Region)
}

func (c *BedrockRerankClient) rerankCohere(ctx context.Context, query string, documents []string, topN int) ([]RankedResult, error) {
	body := map[string]interface{}{
		"query":       query,
		"documents":   documents,
		"top_n":       topN,
		"api_version": 2,
	}
	endpoint := fmt.Sprintf("%s/model/%s/invoke", c.host("bedrock-runtime"), url.PathEscape(c.ModelID))

	var resp struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := c.post(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	out := make([]RankedResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, RankedResult{Index: r.Index, Score: r.RelevanceScore})
	}
	return out, nil
}

func (c *BedrockRerankClient) rerankAmazon(ctx context.Context, query string, documents []string, topN int) ([]RankedResult, error) {
	sources := make([]map[string]interface{}, 0, len(documents))
	for _, doc := range documents {
		sources = append(sources, map[string]interface{}{
			"type": "INLINE",
			"inlineDocumentSource": map[string]interface{}{
				"type":         "TEXT",
				"textDocument": map[string]string{"text": doc},
			},
		})
	}
	body := map[string]interface{}{
		"queries": []map[string]interface{}{
			{"type": "TEXT", "textQuery": map[string]string{"text": query}},
		},
		"rerankingConfiguration": map[string]interface{}{
			"type": "BEDROCK_RERANKING_MODEL",
			"bedrockRerankingConfiguration": map[string]interface{}{
				"modelConfiguration": map[string]string{
					"modelArn": fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", c.Region, c.ModelID),
				},
				"numberOfResults": topN,
			},
		},
		"sources": sources,
	}

	var resp struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevanceScore"`
		} `json:"results"`
	}
	if err := c.post(ctx, c.host("bedrock-agent-runtime")+"/rerank", body, &resp); err != nil {
		return nil, err
	}
	out := make([]RankedResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, RankedResult{Index: r.Index, Score: r.RelevanceScore})
	}
	return out, nil
}

func (c *BedrockRerankClient) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rerank error: status %d, body: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
