package rag

import (
	"math"
	"sort"
	"sync"
)

// Item is one stored entry of a vector index.
type Item struct {
	ID        string
	Embedding []float32
	Payload   map[string]interface{}
}

// Hit is a scored search result.
type Hit struct {
	ItemID      string                 `json:"item_id"`
	Similarity  float64                `json:"similarity"`
	Payload     map[string]interface{} `json:"payload"`
	RerankScore *float64               `json:"rerank_score,omitempty"`
}

// Cosine compares the common prefix of a and b. Zero norms count as 1.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	na, nb = math.Sqrt(na), math.Sqrt(nb)
	if na == 0 {
		na = 1
	}
	if nb == 0 {
		nb = 1
	}
	return dot / (na * nb)
}

// SortBySimilarity orders hits best first, keeping insertion order on ties.
func SortBySimilarity(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
}

// InMemoryIndex is a flat cosine index. Stored items are copies and are
// never mutated after insertion.
type InMemoryIndex struct {
	mu    sync.RWMutex
	items []Item
}

func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{}
}

func copyItem(it Item) Item {
	emb := make([]float32, len(it.Embedding))
	copy(emb, it.Embedding)
	return Item{ID: it.ID, Embedding: emb, Payload: CopyMap(it.Payload)}
}

func (x *InMemoryIndex) Add(item Item) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.items = append(x.items, copyItem(item))
}

func (x *InMemoryIndex) BulkAdd(items []Item) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, it := range items {
		x.items = append(x.items, copyItem(it))
	}
}

// Replace swaps the whole index contents at once.
func (x *InMemoryIndex) Replace(items []Item) {
	next := make([]Item, 0, len(items))
	for _, it := range items {
		next = append(next, copyItem(it))
	}
	x.mu.Lock()
	x.items = next
	x.mu.Unlock()
}

func (x *InMemoryIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

func (x *InMemoryIndex) Search(query []float32, k int) []Hit {
	x.mu.RLock()
	hits := make([]Hit, 0, len(x.items))
	for _, it := range x.items {
		hits = append(hits, Hit{
			ItemID:     it.ID,
			Similarity: Cosine(query, it.Embedding),
			Payload:    CopyMap(it.Payload),
		})
	}
	x.mu.RUnlock()

	SortBySimilarity(hits)
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// CopyMap deep-copies JSON-shaped maps and slices.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []float32:
		return append([]float32(nil), t...)
	default:
		return v
	}
}
