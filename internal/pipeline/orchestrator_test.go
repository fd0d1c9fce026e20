package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/internal/agent"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/memory"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/internal/retrieval"
	"sentinel-be/pkg/embedding"
	"sentinel-be/pkg/events"
	"sentinel-be/pkg/llm"
)

var quietLogger = log.New(io.Discard, "", 0)

// storeAuditor writes audit rows straight into the memory store.
type storeAuditor struct{ store *memory.Store }

func (a storeAuditor) Log(ctx context.Context, runId string, caseId *string, eventType, actor string, payload map[string]interface{}) error {
	r := runId
	return a.store.AuditLogs.Create(ctx, &entity.AuditEvent{RunId: &r, CaseId: caseId, EventType: eventType, Actor: actor, Payload: payload})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.RunProgressEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.RunProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type statusRecorder struct {
	mu   sync.Mutex
	last entity.RunStatus
}

func (s *statusRecorder) Save(status entity.RunStatus) {
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
}

// failingProvider never returns JSON, so stages fall back, and it errors on
// every prompt that mentions failOn.
type failingProvider struct {
	mu      sync.Mutex
	failOn  string
	prompts []string
}

func (p *failingProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (p *failingProvider) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	if p.failOn != "" && strings.Contains(prompt, p.failOn) {
		return "", errors.New("model endpoint unavailable")
	}
	return "I cannot answer in JSON today.", nil
}

// Prompt markers, one per stage template.
const (
	ingestMarker   = "SENTINEL ingest analyst"
	genomicsMarker = "SENTINEL genomics analyst"
	epiMarker      = "SENTINEL epidemiology and OSINT analyst"
	metaMarker     = "SENTINEL meta analyst"
)

type reply func(ctx context.Context) (string, error)

// scriptedProvider answers each stage by its template marker. Unscripted
// stages get non-JSON text and fall back.
type scriptedProvider struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   map[string]int
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{replies: map[string]reply{}, calls: map[string]int{}}
}

func (p *scriptedProvider) on(marker string, r reply) {
	p.mu.Lock()
	p.replies[marker] = r
	p.mu.Unlock()
}

func (p *scriptedProvider) count(marker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[marker]
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, _ ...llm.Option) (string, error) {
	var r reply
	p.mu.Lock()
	for _, marker := range []string{ingestMarker, genomicsMarker, epiMarker, metaMarker} {
		if strings.HasPrefix(prompt, "You are the "+marker) {
			p.calls[marker]++
			r = p.replies[marker]
			break
		}
	}
	p.mu.Unlock()
	if r == nil {
		return "No JSON here.", nil
	}
	return r(ctx)
}

func testCase(id, date string, truth bool, severity float64) entity.RawCase {
	return entity.RawCase{
		CaseId:  id,
		Country: "Kenya",
		City:    "Nairobi",
		Date:    date,
		Genomic: entity.GenomicFeatures{MutationNovelty: 0.8, LineageDeviation: 0.7, RecombinationFlag: true},
		EpiOsint: entity.EpiOsintFeatures{
			NewsSnippets:    []string{"hospital reports fever cluster", "officials confirm testing"},
			SourceTypes:     []string{"news", "official"},
			AnomalyScore:    0.75,
			ReliabilityHint: 0.8,
		},
		Geo:         entity.GeoFeatures{TravelHubScore: 0.7, PopulationDensityScore: 0.6, BorderConnectivity: 0.5},
		GroundTruth: entity.GroundTruth{TrueOutbreak: truth, TrueSeverity: severity, OfficialAlertDate: "2025-02-01"},
	}
}

func corpus() []entity.RawCase {
	return []entity.RawCase{
		testCase("c1", "2025-01-01", true, 8),
		testCase("c2", "2025-01-05", false, 2),
		testCase("c3", "2025-01-10", true, 7.5),
	}
}

type harness struct {
	store     *memory.Store
	publisher *recordingPublisher
	statuses  *statusRecorder
	orch      *Orchestrator
}

func newHarness(t *testing.T, provider llm.LLMProvider) *harness {
	t.Helper()
	store := memory.NewStore()
	factory := unitofwork.NewMemoryRepositoryFactory(store)
	embedder := embedding.NewLocalProvider(64)

	agents, err := agent.NewAgents(provider, nil,
		agent.WithRetryPolicy(agent.RetryPolicy{Attempts: 2, InitialDelay: time.Millisecond, Multiplier: 1}),
		agent.WithLogger(quietLogger))
	require.NoError(t, err)

	retriever := retrieval.NewRetriever(factory, embedder, nil, retrieval.Config{TopK: 3, MaxVectorScan: 100}, quietLogger)
	require.NoError(t, retriever.BuildPastOutbreakIndex(context.Background(), corpus()))

	h := &harness{store: store, publisher: &recordingPublisher{}, statuses: &statusRecorder{}}
	h.orch = NewOrchestrator(agents, retriever, embedder, factory, storeAuditor{store: store}, h.publisher, h.statuses,
		Config{GuardrailSeverity: 7, GuardrailConfidencePct: 60, RagTopK: 3}, quietLogger)
	return h
}

func (h *harness) auditTypes(t *testing.T) []string {
	t.Helper()
	rows, err := h.store.AuditLogs.FindAll(context.Background(), specification.OldestFirst())
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.EventType
	}
	return out
}

func TestExecuteRunCompletes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	run := entity.NewRunStatus("r1", 3, time.Now())

	require.NoError(t, h.orch.ExecuteRun(ctx, run, corpus()))

	assert.Equal(t, entity.RunCompleted, run.Status)
	assert.Equal(t, 3, run.Processed)
	assert.NotNil(t, run.EndedAt)
	assert.Nil(t, run.Error)

	assert.Equal(t, 3, h.store.Cases.Len())
	assert.Equal(t, 12, h.store.AgentOutputs.Len())
	assert.Equal(t, 3, h.store.Decisions.Len())
	assert.Equal(t, 3, h.store.Approvals.Len())
	assert.Equal(t, 3, h.store.StrategyMemory.Len())
	assert.Equal(t, 1, h.store.Metrics.Len())
	assert.Equal(t, 4, h.store.Runs.Len())

	perCase := []string{entity.AuditCaseProcessingStarted, entity.AuditRagContextBuilt, entity.AuditStrategyMemoryUpdated}
	var want []string
	for i := 0; i < 3; i++ {
		want = append(want, perCase...)
	}
	want = append(want, entity.AuditRunCompleted)
	assert.Equal(t, want, h.auditTypes(t))

	assert.Equal(t, []string{events.RunProgress, events.RunProgress, events.RunProgress, events.RunCompleted}, h.publisher.types())
	assert.Equal(t, entity.RunCompleted, h.statuses.last.Status)

	memories, err := h.store.StrategyMemory.FindAll(ctx)
	require.NoError(t, err)
	for _, m := range memories {
		sum := m.Weights["w_genomics"] + m.Weights["w_epi"] + m.Weights["w_geo"]
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.GreaterOrEqual(t, m.Threshold, 0.4)
		assert.LessOrEqual(t, m.Threshold, 0.85)
		assert.Len(t, m.UpdatedPrompts, 4)
		assert.Contains(t, m.StrategyNotes, "Dominant signal:")
	}

	approvals, err := h.store.Approvals.FindAll(ctx)
	require.NoError(t, err)
	decisions, err := h.store.Decisions.FindAll(ctx)
	require.NoError(t, err)
	for i, a := range approvals {
		assert.Equal(t, "auto-created by guardrail", a.ReviewNotes)
		assert.Equal(t, map[string]interface{}{"dispatched": false, "reason": "approval_required"}, a.DispatchInfo)
		if decisions[i].EligibleForApproval {
			assert.Equal(t, entity.ApprovalPending, a.Status)
		} else {
			assert.Equal(t, entity.ApprovalNotRequired, a.Status)
		}
	}
}

func TestExecuteRunNeverLeaksGroundTruth(t *testing.T) {
	ctx := context.Background()
	provider := &failingProvider{}
	h := newHarness(t, provider)

	require.NoError(t, h.orch.ExecuteRun(ctx, entity.NewRunStatus("r1", 3, time.Now()), corpus()))

	require.NotEmpty(t, provider.prompts)
	for _, p := range provider.prompts {
		assert.NotContains(t, p, "ground_truth")
		assert.NotContains(t, p, "true_outbreak")
		assert.NotContains(t, p, "official_alert_date")
	}
}

func TestExecuteRunFailsOnSecondCase(t *testing.T) {
	ctx := context.Background()
	provider := &failingProvider{failOn: `"case_id":"c2"`}
	h := newHarness(t, provider)
	run := entity.NewRunStatus("r1", 3, time.Now())

	err := h.orch.ExecuteRun(ctx, run, corpus())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model endpoint unavailable")

	assert.Equal(t, entity.RunFailed, run.Status)
	assert.Equal(t, 1, run.Processed)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "model endpoint unavailable")

	// The first case stays fully persisted.
	assert.Equal(t, 1, h.store.Decisions.Len())
	assert.Equal(t, 1, h.store.StrategyMemory.Len())
	assert.Equal(t, 0, h.store.Metrics.Len())

	latest, err := h.store.Runs.FindOne(ctx, specification.NewestFirst())
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, latest.Status)
	assert.Equal(t, 1, latest.Processed)

	types := h.auditTypes(t)
	assert.Equal(t, entity.AuditRunFailed, types[len(types)-1])
	failed, err := h.store.AuditLogs.FindOne(ctx, specification.ByEventType{EventType: entity.AuditRunFailed})
	require.NoError(t, err)
	assert.Contains(t, failed.Payload["error"], "model endpoint unavailable")

	assert.Equal(t, []string{events.RunProgress, events.RunFailed}, h.publisher.types())

	// The second case's prompt carries the first case's strategy note.
	var c2Prompt string
	for _, p := range provider.prompts {
		if strings.Contains(p, `"case_id":"c2"`) {
			c2Prompt = p
			break
		}
	}
	require.NotEmpty(t, c2Prompt)
	assert.Contains(t, c2Prompt, "Dominant signal:")
}

func TestExecuteRunCancelledKeepsRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness(t, nil)
	run := entity.NewRunStatus("r1", 3, time.Now())

	err := h.orch.ExecuteRun(ctx, run, corpus())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, entity.RunRunning, run.Status)
	assert.Equal(t, 0, h.store.Runs.Len())
	assert.Empty(t, h.publisher.types())
}

func TestExecuteRunResumesFusionStateFromMemory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.store.StrategyMemory.Create(ctx, &entity.StrategyMemory{
		RunId:         "previous",
		CaseId:        "c0",
		StrategyNotes: "Earlier calibration note.",
		Weights:       map[string]float64{"w_genomics": 0.5, "w_epi": 0.3, "w_geo": 0.2},
		Threshold:     0.6,
	}))

	require.NoError(t, h.orch.ExecuteRun(ctx, entity.NewRunStatus("r1", 2, time.Now()), corpus()[:2]))

	decisions, err := h.store.Decisions.FindAll(ctx, specification.OldestFirst())
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, 0.6, decisions[0].RecommendedThreshold)

	memories, err := h.store.StrategyMemory.FindAll(ctx, specification.ByRunId{RunId: "r1"}, specification.OldestFirst())
	require.NoError(t, err)
	require.Len(t, memories, 2)
	assert.True(t, math.Abs(decisions[1].RecommendedThreshold-memories[0].Threshold) < 1e-12)
}

func TestExecuteRunFiltersOnRawCaseDate(t *testing.T) {
	ctx := context.Background()
	provider := newScriptedProvider()
	// The model drops the date and mislabels the case.
	provider.on(ingestMarker, func(context.Context) (string, error) {
		return `{"normalized_case":{"case_id":"c1","country":"Kenya","city":"Nairobi"},` +
			`"credibility_score":0.6,"score":5,"confidence":0.6,"evidence":["scripted"]}`, nil
	})
	h := newHarness(t, provider)

	require.NoError(t, h.orch.ExecuteRun(ctx, entity.NewRunStatus("r1", 3, time.Now()), corpus()))
	require.Equal(t, 3, provider.count(ingestMarker))

	dates := map[string]string{}
	for _, c := range corpus() {
		dates[c.CaseId] = c.Date
	}

	cases, err := h.store.Cases.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 3)
	for _, c := range cases {
		assert.Equal(t, c.CaseId, c.Normalized["case_id"])
		assert.Equal(t, dates[c.CaseId], c.Normalized["date"])
	}

	built, err := h.store.AuditLogs.FindAll(ctx, specification.ByEventType{EventType: entity.AuditRagContextBuilt})
	require.NoError(t, err)
	require.Len(t, built, 3)

	pastSeen := map[string]int{}
	for _, row := range built {
		require.NotNil(t, row.CaseId)
		caseId, caseDate := *row.CaseId, dates[*row.CaseId]

		var rag struct {
			Records []struct {
				ItemID  string `json:"item_id"`
				Payload struct {
					Summary struct {
						Date string `json:"date"`
					} `json:"summary"`
				} `json:"payload"`
			} `json:"clickhouse_records"`
			Past []struct {
				ItemID  string `json:"item_id"`
				Payload struct {
					Date string `json:"date"`
				} `json:"payload"`
			} `json:"past_outbreak_cases"`
		}
		raw, err := json.Marshal(row.Payload)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &rag))

		for _, r := range rag.Records {
			assert.NotEqual(t, caseId, r.ItemID)
			assert.LessOrEqual(t, r.Payload.Summary.Date, caseDate, "case %s got record %s", caseId, r.ItemID)
		}
		for _, p := range rag.Past {
			assert.NotEqual(t, caseId, p.ItemID)
			assert.LessOrEqual(t, p.Payload.Date, caseDate, "case %s got past case %s", caseId, p.ItemID)
		}
		pastSeen[caseId] = len(rag.Past)
	}
	assert.Equal(t, map[string]int{"c1": 0, "c2": 1, "c3": 2}, pastSeen)
}

func TestExecuteRunFailsWhenOneBranchFails(t *testing.T) {
	ctx := context.Background()
	provider := newScriptedProvider()
	provider.on(genomicsMarker, func(context.Context) (string, error) {
		return "", fmt.Errorf("sequencer offline: %w", llm.ErrPermanent)
	})
	h := newHarness(t, provider)
	run := entity.NewRunStatus("r1", 3, time.Now())

	err := h.orch.ExecuteRun(ctx, run, corpus())
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrPermanent)
	assert.Contains(t, err.Error(), "sequencer offline")

	assert.Equal(t, entity.RunFailed, run.Status)
	assert.Equal(t, 0, run.Processed)
	assert.Equal(t, 1, provider.count(genomicsMarker))
	assert.Equal(t, 1, provider.count(epiMarker))
	assert.Zero(t, provider.count(metaMarker))

	assert.Equal(t, 0, h.store.AgentOutputs.Len())
	assert.Equal(t, 0, h.store.Decisions.Len())
	assert.Equal(t, 0, h.store.StrategyMemory.Len())
	assert.Equal(t, []string{events.RunFailed}, h.publisher.types())
}

func TestExecuteRunCancelsSlowBranch(t *testing.T) {
	ctx := context.Background()
	provider := newScriptedProvider()
	epiStarted := make(chan struct{})
	epiCancelled := make(chan struct{})

	provider.on(genomicsMarker, func(context.Context) (string, error) {
		<-epiStarted
		return "", fmt.Errorf("sequencer offline: %w", llm.ErrPermanent)
	})
	provider.on(epiMarker, func(ctx context.Context) (string, error) {
		close(epiStarted)
		select {
		case <-ctx.Done():
			close(epiCancelled)
			return "", ctx.Err()
		case <-time.After(10 * time.Second):
			return "", errors.New("branch ran to its deadline")
		}
	})
	h := newHarness(t, provider)
	run := entity.NewRunStatus("r1", 3, time.Now())

	start := time.Now()
	err := h.orch.ExecuteRun(ctx, run, corpus())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.ErrorIs(t, err, llm.ErrPermanent)
	assert.NotContains(t, err.Error(), "deadline")
	select {
	case <-epiCancelled:
	default:
		t.Fatal("epi_osint branch was not cancelled")
	}
	assert.Equal(t, 1, provider.count(epiMarker))
	assert.Zero(t, provider.count(metaMarker))
	assert.Equal(t, entity.RunFailed, run.Status)
}
