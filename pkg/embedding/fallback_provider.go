package embedding

import (
	"context"
	"log"
	"time"

	"github.com/patrickmn/go-cache"
)

// FallbackProvider tries Primary and falls back to the local hash embedder on
// any error or empty vector.
type FallbackProvider struct {
	Primary EmbeddingProvider
	Local   *LocalProvider
}

func NewFallbackProvider(primary EmbeddingProvider, dim int) *FallbackProvider {
	return &FallbackProvider{Primary: primary, Local: NewLocalProvider(dim)}
}

func (p *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.Primary != nil {
		vec, err := p.Primary.Embed(ctx, text)
		if err == nil && len(vec) > 0 {
			return FitDim(vec, p.Local.Dim), nil
		}
		if err != nil {
			log.Printf("[WARN] remote embedding failed, using local: %v", err)
		}
	}
	return p.Local.Vector(text), nil
}

// CachedProvider memoizes vectors by input text.
type CachedProvider struct {
	inner EmbeddingProvider
	cache *cache.Cache
}

func NewCachedProvider(inner EmbeddingProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := p.cache.Get(text); ok {
		return cloneVector(v.([]float32)), nil
	}
	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.SetDefault(text, cloneVector(vec))
	return vec, nil
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// NewProvider builds the configured embedder, always backed by the local one.
func NewProvider(kind, baseURL, region, apiKey, modelID string, dim int) EmbeddingProvider {
	var primary EmbeddingProvider
	switch kind {
	case "titan", "bedrock":
		primary = NewTitanProvider(region, apiKey, modelID, dim)
	case "ollama":
		primary = NewOllamaProvider(baseURL, modelID, dim)
	}
	return NewCachedProvider(NewFallbackProvider(primary, dim), 30*time.Minute)
}
