package retrieval

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/memory"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/pkg/embedding"
	"sentinel-be/pkg/rag"
)

func newTestRetriever(t *testing.T) (*Retriever, *memory.Store, *embedding.LocalProvider) {
	t.Helper()
	store := memory.NewStore()
	embedder := embedding.NewLocalProvider(64)
	logger := log.New(io.Discard, "", 0)
	r := NewRetriever(unitofwork.NewMemoryRepositoryFactory(store), embedder, nil, Config{TopK: 3, MaxVectorScan: 50}, logger)
	return r, store, embedder
}

func rawCase(id, date string) entity.RawCase {
	return entity.RawCase{
		CaseId:  id,
		Country: "Kenya",
		City:    "Nairobi",
		Date:    date,
		Genomic: entity.GenomicFeatures{MutationNovelty: 0.7, LineageDeviation: 0.4},
		EpiOsint: entity.EpiOsintFeatures{
			NewsSnippets: []string{"cluster of fevers"},
			SourceTypes:  []string{"news"},
			AnomalyScore: 0.6,
		},
		GroundTruth: entity.GroundTruth{TrueOutbreak: true, TrueSeverity: 8, OfficialAlertDate: "2025-02-01"},
	}
}

func TestRetrieveExcludesSelfAndFuture(t *testing.T) {
	ctx := context.Background()
	r, store, embedder := newTestRetriever(t)

	corpus := []entity.RawCase{
		rawCase("c1", "2025-01-01"),
		rawCase("c2", "2025-01-05"),
		rawCase("c3", "2025-01-10"),
		rawCase("c4", "2025-01-20"),
	}
	require.NoError(t, r.BuildPastOutbreakIndex(ctx, corpus))

	for _, c := range corpus {
		payload := c.Payload()
		require.NoError(t, store.Cases.Create(ctx, &entity.CaseRecord{
			CaseId:      c.CaseId,
			RunId:       "old-run",
			CaseDate:    c.Date,
			Country:     c.Country,
			City:        c.City,
			Normalized:  payload,
			GroundTruth: map[string]interface{}{"true_outbreak": true, "true_severity": 8.0},
			Embedding:   embedder.Vector(embedding.CaseEmbeddingText(payload)),
		}))
	}

	query := corpus[2].Payload()
	got, err := r.Retrieve(ctx, "c3", "2025-01-10", query, embedder.Vector(embedding.CaseEmbeddingText(query)), 3)
	require.NoError(t, err)

	for _, list := range [][]string{ids(got.ClickhouseRecords), ids(got.PastOutbreakCases)} {
		assert.NotContains(t, list, "c3")
		assert.NotContains(t, list, "c4")
		assert.ElementsMatch(t, []string{"c1", "c2"}, list)
	}
	assert.Equal(t, "c3", got.QueryCase.CaseId)
	assert.Equal(t, "Kenya", got.QueryCase.Country)
}

func TestRetrieveUsesCaseDateOverNormalized(t *testing.T) {
	ctx := context.Background()
	r, _, embedder := newTestRetriever(t)

	corpus := []entity.RawCase{
		rawCase("c1", "2025-01-01"),
		rawCase("c2", "2025-01-05"),
		rawCase("c3", "2025-01-10"),
	}
	require.NoError(t, r.BuildPastOutbreakIndex(ctx, corpus))

	tests := []struct {
		name  string
		query map[string]interface{}
	}{
		{name: "date missing", query: map[string]interface{}{"case_id": "c1", "country": "Kenya"}},
		{name: "date wrong", query: map[string]interface{}{"case_id": "c1", "country": "Kenya", "date": "2030-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Retrieve(ctx, "c2", "2025-01-05", tt.query, embedder.Vector(embedding.CaseEmbeddingText(tt.query)), 3)
			require.NoError(t, err)
			assert.Equal(t, []string{"c1"}, ids(got.PastOutbreakCases))
		})
	}
}

func TestRetrieveNeverLeaksGroundTruth(t *testing.T) {
	ctx := context.Background()
	r, store, embedder := newTestRetriever(t)

	require.NoError(t, store.Cases.Create(ctx, &entity.CaseRecord{
		CaseId:   "c1",
		RunId:    "r1",
		CaseDate: "2025-01-01",
		Normalized: map[string]interface{}{
			"country":      "Kenya",
			"ground_truth": map[string]interface{}{"true_outbreak": true},
		},
		GroundTruth: map[string]interface{}{"true_outbreak": true},
		Embedding:   embedder.Vector("kenya"),
	}))
	require.NoError(t, r.BuildPastOutbreakIndex(ctx, []entity.RawCase{rawCase("c0", "2024-12-01")}))

	query := map[string]interface{}{"case_id": "c9", "country": "Kenya", "date": "2025-01-15"}
	got, err := r.Retrieve(ctx, "c9", "2025-01-15", query, embedder.Vector("kenya"), 3)
	require.NoError(t, err)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	text := string(raw)
	for _, key := range []string{"ground_truth", "true_outbreak", "true_severity", "official_alert_date", "embedding"} {
		assert.False(t, strings.Contains(text, key), "context leaks %q: %s", key, text)
	}
}

func TestRetrieveStrategyMemoryIgnoresDates(t *testing.T) {
	ctx := context.Background()
	r, store, embedder := newTestRetriever(t)

	require.NoError(t, store.StrategyMemory.Create(ctx, &entity.StrategyMemory{
		RunId:          "r1",
		CaseId:         "c7",
		StrategyNotes:  "Preserve current strategy",
		UpdatedPrompts: map[string]string{"meta": "x"},
		Weights:        map[string]float64{"w_genomics": 0.4, "w_epi": 0.4, "w_geo": 0.2},
		Threshold:      0.7,
		Embedding:      embedder.Vector("preserve strategy"),
	}))

	query := map[string]interface{}{"case_id": "c1", "date": "2020-01-01"}
	got, err := r.Retrieve(ctx, "c1", "2020-01-01", query, embedder.Vector("preserve strategy"), 3)
	require.NoError(t, err)
	require.Len(t, got.StrategyMemory, 1)
	assert.Equal(t, "r1::c7", got.StrategyMemory[0].ItemID)
	assert.Equal(t, 0.7, got.StrategyMemory[0].Payload["threshold"])
	assert.Empty(t, got.ClickhouseRecords)
	assert.Empty(t, got.PastOutbreakCases)
}

func TestContextMapKeys(t *testing.T) {
	c := Context{QueryCase: QueryCase{CaseId: "c1"}}
	m := c.Map()
	for _, key := range []string{"clickhouse_records", "past_outbreak_cases", "strategy_memory", "query_case"} {
		assert.Contains(t, m, key)
	}
}

func ids(hits []rag.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ItemID)
	}
	return out
}
