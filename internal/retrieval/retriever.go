package retrieval

import (
	"context"
	"fmt"
	"log"
	"time"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/pkg/embedding"
	"sentinel-be/pkg/rag"
)

type QueryCase struct {
	CaseId  string      `json:"case_id"`
	Country interface{} `json:"country"`
	City    interface{} `json:"city"`
}

// Context is what every downstream scoring stage sees as RAG JSON.
type Context struct {
	ClickhouseRecords []rag.Hit `json:"clickhouse_records"`
	PastOutbreakCases []rag.Hit `json:"past_outbreak_cases"`
	StrategyMemory    []rag.Hit `json:"strategy_memory"`
	QueryCase         QueryCase `json:"query_case"`
}

func hitsMap(hits []rag.Hit) []interface{} {
	out := make([]interface{}, 0, len(hits))
	for _, h := range hits {
		m := map[string]interface{}{
			"item_id":    h.ItemID,
			"similarity": h.Similarity,
			"payload":    rag.CopyMap(h.Payload),
		}
		if h.RerankScore != nil {
			m["rerank_score"] = *h.RerankScore
		}
		out = append(out, m)
	}
	return out
}

// Map renders the context as a JSON-shaped map for prompts and audit payloads.
func (c Context) Map() map[string]interface{} {
	return map[string]interface{}{
		"clickhouse_records":  hitsMap(c.ClickhouseRecords),
		"past_outbreak_cases": hitsMap(c.PastOutbreakCases),
		"strategy_memory":     hitsMap(c.StrategyMemory),
		"query_case": map[string]interface{}{
			"case_id": c.QueryCase.CaseId,
			"country": c.QueryCase.Country,
			"city":    c.QueryCase.City,
		},
	}
}

type Config struct {
	TopK          int
	MaxVectorScan int
}

type Retriever struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
	pastIndex  *rag.InMemoryIndex
	reranker   *rag.Reranker
	config     Config
	logger     *log.Logger
}

func NewRetriever(
	uowFactory unitofwork.RepositoryFactory,
	embedder embedding.EmbeddingProvider,
	reranker *rag.Reranker,
	config Config,
	logger *log.Logger,
) *Retriever {
	if logger == nil {
		logger = log.Default()
	}
	if reranker == nil {
		reranker = rag.NewReranker(nil, logger)
	}
	if config.TopK <= 0 {
		config.TopK = 3
	}
	if config.MaxVectorScan <= 0 {
		config.MaxVectorScan = 500
	}
	return &Retriever{
		uowFactory: uowFactory,
		embedder:   embedder,
		pastIndex:  rag.NewInMemoryIndex(),
		reranker:   reranker,
		config:     config,
		logger:     logger,
	}
}

// BuildPastOutbreakIndex rebuilds the corpus index. Ground truth never
// enters it because only the stage payload of each case is embedded.
func (r *Retriever) BuildPastOutbreakIndex(ctx context.Context, cases []entity.RawCase) error {
	items := make([]rag.Item, 0, len(cases))
	for _, c := range cases {
		payload := c.Payload()
		text := embedding.CaseEmbeddingText(payload)
		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed case %s: %w", c.CaseId, err)
		}
		items = append(items, rag.Item{
			ID:        c.CaseId,
			Embedding: vec,
			Payload: map[string]interface{}{
				"case_id": c.CaseId,
				"country": c.Country,
				"city":    c.City,
				"date":    c.Date,
				"summary": text,
			},
		})
	}
	r.pastIndex.Replace(items)
	r.logger.Printf("[INFO] Built past-outbreak vector index with %d records", len(items))
	return nil
}

// Retrieve builds the context for one case. caseDate is the raw case date;
// model output never decides which records count as the past.
func (r *Retriever) Retrieve(ctx context.Context, caseId, caseDate string, normalizedCase map[string]interface{}, queryEmbedding []float32, topK int) (*Context, error) {
	k := topK
	if k <= 0 {
		k = r.config.TopK
	}
	currentDate, hasDate := entity.ParseDate(caseDate)

	fromCases, err := r.searchCases(ctx, caseId, queryEmbedding, currentDate, hasDate, k)
	if err != nil {
		return nil, fmt.Errorf("search cases: %w", err)
	}

	overscan := k * 10
	if k+8 > overscan {
		overscan = k + 8
	}
	fromPast := filterPastHits(caseId, currentDate, hasDate, r.pastIndex.Search(queryEmbedding, overscan), k)

	fromStrategy, err := r.searchStrategyMemory(ctx, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("search strategy memory: %w", err)
	}

	queryText := embedding.CaseEmbeddingText(normalizedCase)
	out := &Context{
		ClickhouseRecords: rag.StripHeavyFields(r.reranker.Rerank(ctx, queryText, fromCases, k)),
		PastOutbreakCases: rag.StripHeavyFields(r.reranker.Rerank(ctx, queryText, fromPast, k)),
		StrategyMemory:    rag.StripHeavyFields(r.reranker.Rerank(ctx, queryText, fromStrategy, k)),
		QueryCase: QueryCase{
			CaseId:  caseId,
			Country: normalizedCase["country"],
			City:    normalizedCase["city"],
		},
	}
	r.logger.Printf("[DEBUG] RAG context for %s: cases=%d past=%d strategy=%d",
		caseId, len(out.ClickhouseRecords), len(out.PastOutbreakCases), len(out.StrategyMemory))
	return out, nil
}

func (r *Retriever) searchCases(ctx context.Context, caseId string, query []float32, current time.Time, hasDate bool, k int) ([]rag.Hit, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.CaseRepository().FindAll(ctx, specification.NewestFirst(), specification.Limit(r.config.MaxVectorScan))
	if err != nil {
		return nil, err
	}

	hits := make([]rag.Hit, 0, len(rows))
	for _, row := range rows {
		if row.CaseId == caseId {
			continue
		}
		if hasDate {
			if d, ok := entity.ParseDate(row.CaseDate); ok && d.After(current) {
				continue
			}
		}
		date := row.Normalized["date"]
		if date == nil || date == "" {
			date = row.CaseDate
		}
		hits = append(hits, rag.Hit{
			ItemID:     row.CaseId,
			Similarity: rag.Cosine(query, row.Embedding),
			Payload: map[string]interface{}{
				"run_id": row.RunId,
				"summary": map[string]interface{}{
					"country":        row.Normalized["country"],
					"city":           row.Normalized["city"],
					"pathogen_label": row.Normalized["pathogen_label"],
					"date":           date,
				},
			},
		})
	}
	rag.SortBySimilarity(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (r *Retriever) searchStrategyMemory(ctx context.Context, query []float32, k int) ([]rag.Hit, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.StrategyMemoryRepository().FindAll(ctx, specification.NewestFirst(), specification.Limit(r.config.MaxVectorScan))
	if err != nil {
		return nil, err
	}

	hits := make([]rag.Hit, 0, len(rows))
	for _, row := range rows {
		prompts := make(map[string]interface{}, len(row.UpdatedPrompts))
		for k, v := range row.UpdatedPrompts {
			prompts[k] = v
		}
		weights := make(map[string]interface{}, len(row.Weights))
		for k, v := range row.Weights {
			weights[k] = v
		}
		hits = append(hits, rag.Hit{
			ItemID:     fmt.Sprintf("%s::%s", row.RunId, row.CaseId),
			Similarity: rag.Cosine(query, row.Embedding),
			Payload: map[string]interface{}{
				"run_id":          row.RunId,
				"case_id":         row.CaseId,
				"strategy_notes":  row.StrategyNotes,
				"updated_prompts": prompts,
				"weights":         weights,
				"threshold":       row.Threshold,
			},
		})
	}
	rag.SortBySimilarity(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func filterPastHits(caseId string, current time.Time, hasDate bool, hits []rag.Hit, k int) []rag.Hit {
	out := make([]rag.Hit, 0, k)
	for _, h := range hits {
		if fmt.Sprint(h.Payload["case_id"]) == caseId {
			continue
		}
		if hasDate {
			if d, ok := entity.ParseDate(h.Payload["date"]); ok && d.After(current) {
				continue
			}
		}
		out = append(out, h)
		if len(out) >= k {
			break
		}
	}
	return out
}
