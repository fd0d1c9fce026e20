package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sentinel-be/internal/agent"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/fusion"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/internal/retrieval"
	"sentinel-be/pkg/embedding"
	"sentinel-be/pkg/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	actorSystem   = "system"
	maxHints      = 5
	guardrailNote = "auto-created by guardrail"
)

// Auditor appends one audit_logs row.
type Auditor interface {
	Log(ctx context.Context, runId string, caseId *string, eventType, actor string, payload map[string]interface{}) error
}

// ProgressPublisher puts run lifecycle events on the event bus.
type ProgressPublisher interface {
	Publish(ctx context.Context, event events.RunProgressEvent) error
}

// StatusStore keeps the latest snapshot of a live run.
type StatusStore interface {
	Save(status entity.RunStatus)
}

type Config struct {
	GuardrailSeverity      float64
	GuardrailConfidencePct float64
	RagTopK                int
}

// Orchestrator drives one run through every case, strictly in order.
type Orchestrator struct {
	agents     *agent.Agents
	retriever  *retrieval.Retriever
	embedder   embedding.EmbeddingProvider
	uowFactory unitofwork.RepositoryFactory
	auditor    Auditor
	publisher  ProgressPublisher
	statuses   StatusStore
	config     Config
	tracer     trace.Tracer
	logger     *log.Logger
	now        func() time.Time
}

func NewOrchestrator(
	agents *agent.Agents,
	retriever *retrieval.Retriever,
	embedder embedding.EmbeddingProvider,
	uowFactory unitofwork.RepositoryFactory,
	auditor Auditor,
	publisher ProgressPublisher,
	statuses StatusStore,
	config Config,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	if config.RagTopK <= 0 {
		config.RagTopK = 3
	}
	return &Orchestrator{
		agents:     agents,
		retriever:  retriever,
		embedder:   embedder,
		uowFactory: uowFactory,
		auditor:    auditor,
		publisher:  publisher,
		statuses:   statuses,
		config:     config,
		tracer:     otel.Tracer("sentinel/pipeline"),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// runState is everything carried from one case to the next.
type runState struct {
	fusion  entity.FusionState
	hints   []string
	metrics []entity.CaseMetricInput
}

// ExecuteRun scores every case of the run and leaves the run completed or
// failed. A cancelled context stops the run without a terminal row, so the
// persisted status stays running.
func (o *Orchestrator) ExecuteRun(ctx context.Context, run *entity.RunStatus, cases []entity.RawCase) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", run.RunId),
		attribute.Int("run.total", len(cases)),
	))
	defer span.End()

	st, err := o.loadState(ctx)
	if err != nil {
		return o.fail(ctx, run, err)
	}
	o.logger.Printf("[INFO] Run %s starting with %d cases, threshold %.3f, %d strategy hints", run.RunId, len(cases), st.fusion.Threshold, len(st.hints))

	for idx, c := range cases {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, run, err)
		}
		if err := o.processCase(ctx, run, idx+1, c, st); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return o.fail(ctx, run, err)
		}
	}

	return o.complete(ctx, run, st)
}

func (o *Orchestrator) loadState(ctx context.Context) (*runState, error) {
	uow := o.uowFactory.NewUnitOfWork(ctx)
	latest, err := uow.StrategyMemoryRepository().FindOne(ctx, specification.NewestFirst())
	if err != nil {
		return nil, fmt.Errorf("load fusion state: %w", err)
	}
	recent, err := uow.StrategyMemoryRepository().FindAll(ctx, specification.NewestFirst(), specification.Limit(maxHints))
	if err != nil {
		return nil, fmt.Errorf("load strategy notes: %w", err)
	}
	hints := make([]string, 0, len(recent))
	for _, m := range recent {
		if note := strings.TrimSpace(m.StrategyNotes); note != "" {
			hints = append(hints, note)
		}
	}
	return &runState{fusion: fusion.StateFromMemory(latest), hints: hints}, nil
}

func (o *Orchestrator) processCase(ctx context.Context, run *entity.RunStatus, position int, c entity.RawCase, st *runState) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.case", trace.WithAttributes(
		attribute.String("case.id", c.CaseId),
		attribute.Int("case.position", position),
	))
	defer span.End()

	uow := o.uowFactory.NewUnitOfWork(ctx)
	caseId := c.CaseId
	hints := append([]string(nil), st.hints...)

	if err := o.auditor.Log(ctx, run.RunId, &caseId, entity.AuditCaseProcessingStarted, actorSystem, map[string]interface{}{"position": position}); err != nil {
		return err
	}

	var ingest entity.IngestOutput
	err := o.stage(ctx, entity.AgentIngest, func(ctx context.Context) (err error) {
		ingest, err = o.agents.Ingest.Run(ctx, agent.Input{
			Payload: map[string]interface{}{"case": c.Payload()},
			Notes:   hints,
		})
		return err
	})
	if err != nil {
		return err
	}
	normalized := pinCaseIdentity(ingest.NormalizedCase, c)
	ingest.NormalizedCase = normalized

	caseVec, err := o.embedder.Embed(ctx, embedding.CaseEmbeddingText(normalized))
	if err != nil {
		return fmt.Errorf("embed case %s: %w", caseId, err)
	}

	if err := uow.CaseRepository().Create(ctx, &entity.CaseRecord{
		CaseId:        caseId,
		RunId:         run.RunId,
		CaseDate:      c.Date,
		Country:       c.Country,
		City:          c.City,
		Lat:           c.Lat,
		Lon:           c.Lon,
		PathogenLabel: c.PathogenLabel,
		Normalized:    normalized,
		GroundTruth:   agent.ToMap(c.GroundTruth),
		Embedding:     caseVec,
	}); err != nil {
		return fmt.Errorf("insert case %s: %w", caseId, err)
	}

	ragCtx, err := o.retriever.Retrieve(ctx, caseId, c.Date, normalized, caseVec, o.config.RagTopK)
	if err != nil {
		return fmt.Errorf("retrieve context for %s: %w", caseId, err)
	}
	ragMap := ragCtx.Map()
	if err := o.auditor.Log(ctx, run.RunId, &caseId, entity.AuditRagContextBuilt, actorSystem, ragMap); err != nil {
		return err
	}

	ingestMap := agent.ToMap(ingest)
	branchPayload := map[string]interface{}{"case": normalized, "ingest_output": ingestMap}

	var genomics entity.GenomicsOutput
	var epi entity.EpiOsintOutput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.stage(gctx, entity.AgentGenomics, func(ctx context.Context) (err error) {
			genomics, err = o.agents.Genomics.Run(ctx, agent.Input{Payload: branchPayload, Rag: ragMap, Notes: hints})
			return err
		})
	})
	g.Go(func() error {
		return o.stage(gctx, entity.AgentEpiOsint, func(ctx context.Context) (err error) {
			epi, err = o.agents.EpiOsint.Run(ctx, agent.Input{Payload: branchPayload, Rag: ragMap, Notes: hints})
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	var meta entity.MetaOutput
	err = o.stage(ctx, entity.AgentMeta, func(ctx context.Context) (err error) {
		meta, err = o.agents.Meta.Run(ctx, agent.Input{
			Payload: map[string]interface{}{
				"case":            normalized,
				"ingest_output":   ingestMap,
				"genomics_output": agent.ToMap(genomics),
				"epi_output":      agent.ToMap(epi),
				"fusion_state":    agent.ToMap(st.fusion),
			},
			Rag:   ragMap,
			Notes: hints,
		})
		return err
	})
	if err != nil {
		return err
	}

	eligible := meta.Severity >= o.config.GuardrailSeverity && meta.ConfidencePct >= o.config.GuardrailConfidencePct

	if err := o.saveOutputs(ctx, uow, run.RunId, caseId, ingest, genomics, epi, meta); err != nil {
		return err
	}
	if err := uow.DecisionRepository().Create(ctx, &entity.Decision{
		RunId:                run.RunId,
		CaseId:               caseId,
		FusedScore:           meta.FusedScore,
		Severity:             meta.Severity,
		Confidence:           meta.ConfidencePct,
		EligibleForApproval:  eligible,
		Contributions:        agent.ToMap(meta.Contributions),
		Rationale:            meta.Rationale,
		RecommendedThreshold: st.fusion.Threshold,
		Suggestion:           meta.Suggestion,
	}); err != nil {
		return fmt.Errorf("insert decision for %s: %w", caseId, err)
	}

	initial := entity.ApprovalNotRequired
	if eligible {
		initial = entity.ApprovalPending
	}
	if err := uow.ApprovalRepository().Create(ctx, &entity.ApprovalRecord{
		RunId:        run.RunId,
		CaseId:       caseId,
		Status:       initial,
		ReviewNotes:  guardrailNote,
		DispatchInfo: map[string]interface{}{"dispatched": false, "reason": "approval_required"},
	}); err != nil {
		return fmt.Errorf("insert approval for %s: %w", caseId, err)
	}

	scores := fusion.Scores{Genomics: genomics.GenomicsScore, Epi: epi.EpiScore, Geo: epi.GeoScore}
	truth := c.GroundTruth
	next := fusion.Update(st.fusion, scores, meta.Severity, meta.ConfidencePct, truth.TrueOutbreak, truth.TrueSeverity)

	note, updates := fusion.BuildStrategyUpdate(eligible, truth.TrueOutbreak, scores, meta.StrategyNotes)
	merged := fusion.MergePrompts(meta.UpdatedPrompts, updates)
	promptJSON, _ := json.Marshal(merged)
	noteVec, err := o.embedder.Embed(ctx, note+" "+string(promptJSON))
	if err != nil {
		return fmt.Errorf("embed strategy note for %s: %w", caseId, err)
	}

	if err := uow.StrategyMemoryRepository().Create(ctx, &entity.StrategyMemory{
		RunId:          run.RunId,
		CaseId:         caseId,
		StrategyNotes:  note,
		UpdatedPrompts: merged,
		Weights:        next.Weights(),
		Threshold:      next.Threshold,
		Embedding:      noteVec,
	}); err != nil {
		return fmt.Errorf("insert strategy memory for %s: %w", caseId, err)
	}
	if err := o.auditor.Log(ctx, run.RunId, &caseId, entity.AuditStrategyMemoryUpdated, actorSystem, map[string]interface{}{
		"strategy_notes": note,
		"weights":        next.Weights(),
		"threshold":      next.Threshold,
	}); err != nil {
		return err
	}

	st.metrics = append(st.metrics, entity.CaseMetricInput{
		CaseDate:          c.Date,
		OfficialAlertDate: truth.OfficialAlertDate,
		PredictedPositive: eligible,
		TrueOutbreak:      truth.TrueOutbreak,
		PredSeverity:      meta.Severity,
		TrueSeverity:      truth.TrueSeverity,
		PredConfidencePct: meta.ConfidencePct,
	})
	st.fusion = next
	st.hints = append([]string{note}, st.hints...)
	if len(st.hints) > maxHints {
		st.hints = st.hints[:maxHints]
	}

	run.Processed = position
	if err := o.persistRun(ctx, run); err != nil {
		return err
	}
	o.publish(ctx, run, events.RunProgress, caseId, nil)

	span.SetAttributes(
		attribute.Float64("case.severity", meta.Severity),
		attribute.Bool("case.eligible", eligible),
	)
	o.logger.Printf("[INFO] Run %s case %d/%d (%s): severity %.2f, confidence %.1f%%, eligible %t", run.RunId, position, run.Total, caseId, meta.Severity, meta.ConfidencePct, eligible)
	return nil
}

// stage wraps one scoring call in its own span.
// pinCaseIdentity restores the id and date of the raw case over whatever the
// ingest model returned for them.
func pinCaseIdentity(normalized map[string]interface{}, c entity.RawCase) map[string]interface{} {
	if normalized == nil {
		normalized = make(map[string]interface{})
	}
	normalized["case_id"] = c.CaseId
	normalized["date"] = c.Date
	return normalized
}

func (o *Orchestrator) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "agent."+name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (o *Orchestrator) saveOutputs(ctx context.Context, uow unitofwork.UnitOfWork, runId, caseId string, ingest entity.IngestOutput, genomics entity.GenomicsOutput, epi entity.EpiOsintOutput, meta entity.MetaOutput) error {
	records := []*entity.AgentOutputRecord{
		{AgentName: entity.AgentIngest, Score: ingest.Score, Confidence: ingest.Confidence, Output: agent.ToMap(ingest)},
		{AgentName: entity.AgentGenomics, Score: genomics.GenomicsScore, Confidence: genomics.Confidence, Output: agent.ToMap(genomics)},
		{AgentName: entity.AgentEpiOsint, Score: epi.EpiScore, Confidence: epi.Confidence, Output: agent.ToMap(epi)},
		{AgentName: entity.AgentMeta, Score: meta.Severity, Confidence: meta.ConfidencePct / 100, Output: agent.ToMap(meta)},
	}
	for _, r := range records {
		r.RunId = runId
		r.CaseId = caseId
		if err := uow.AgentOutputRepository().Create(ctx, r); err != nil {
			return fmt.Errorf("insert %s output for %s: %w", r.AgentName, caseId, err)
		}
	}
	return nil
}

func (o *Orchestrator) persistRun(ctx context.Context, run *entity.RunStatus) error {
	if o.statuses != nil {
		o.statuses.Save(run.Snapshot())
	}
	uow := o.uowFactory.NewUnitOfWork(ctx)
	if err := uow.RunRepository().Create(ctx, run.Event(nil)); err != nil {
		return fmt.Errorf("insert run event: %w", err)
	}
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, run *entity.RunStatus, st *runState) error {
	metrics := fusion.ComputeRunMetrics(run.RunId, st.metrics)
	uow := o.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MetricRepository().Create(ctx, &metrics); err != nil {
		return o.fail(ctx, run, fmt.Errorf("insert metrics: %w", err))
	}

	run.Processed = run.Total
	if err := run.Transition(entity.RunCompleted, o.now(), nil); err != nil {
		return err
	}
	if err := o.persistRun(ctx, run); err != nil {
		return err
	}
	if err := o.auditor.Log(ctx, run.RunId, nil, entity.AuditRunCompleted, actorSystem, metrics.Map()); err != nil {
		return err
	}
	o.publish(ctx, run, events.RunCompleted, "", metrics.Map())
	o.logger.Printf("[INFO] Run %s completed: lead time %.2fd, false alarm rate %.3f, severity MAE %.3f, brier %.3f",
		run.RunId, metrics.LeadTimeDays, metrics.FalseAlarmRate, metrics.SeverityMAE, metrics.CalibrationBrier)
	return nil
}

// fail records the terminal failure and returns cause. Nothing written by
// earlier cases is rolled back.
func (o *Orchestrator) fail(ctx context.Context, run *entity.RunStatus, cause error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		o.logger.Printf("[WARN] Run %s cancelled after %d/%d cases", run.RunId, run.Processed, run.Total)
		return ctx.Err()
	}

	o.logger.Printf("[ERROR] Run %s failed after %d/%d cases: %v", run.RunId, run.Processed, run.Total, cause)
	if err := run.Transition(entity.RunFailed, o.now(), cause); err != nil {
		return fmt.Errorf("%w (while failing run: %v)", cause, err)
	}
	if err := o.persistRun(ctx, run); err != nil {
		o.logger.Printf("[ERROR] Run %s: %v", run.RunId, err)
	}
	if err := o.auditor.Log(ctx, run.RunId, nil, entity.AuditRunFailed, actorSystem, map[string]interface{}{"error": cause.Error()}); err != nil {
		o.logger.Printf("[ERROR] Run %s: audit run_failed: %v", run.RunId, err)
	}
	o.publish(ctx, run, events.RunFailed, "", nil)
	return cause
}

// publish never fails the run; the runs table is the source of truth.
func (o *Orchestrator) publish(ctx context.Context, run *entity.RunStatus, eventType, caseId string, metrics map[string]interface{}) {
	if o.publisher == nil {
		return
	}
	e := ProgressEvent(run, eventType, o.now())
	e.CaseId = caseId
	e.Metrics = metrics
	if err := o.publisher.Publish(ctx, e); err != nil {
		o.logger.Printf("[WARN] Run %s: publish %s: %v", run.RunId, eventType, err)
	}
}

// ProgressEvent builds the bus event for the run's current snapshot.
func ProgressEvent(run *entity.RunStatus, eventType string, at time.Time) events.RunProgressEvent {
	s := run.Snapshot()
	e := events.RunProgressEvent{
		Type:       eventType,
		RunId:      s.RunId,
		Status:     string(s.Status),
		Processed:  s.Processed,
		Total:      s.Total,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		OccurredAt: at,
	}
	if s.Error != nil {
		e.Error = *s.Error
	}
	return e
}
