package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sentinel-be/internal/dto"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/pipeline"
	"sentinel-be/internal/pkg/logger"
	"sentinel-be/internal/repository/memory"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/pkg/events"

	"github.com/google/uuid"
)

// RunExecutor runs the cases of one run to a terminal state.
type RunExecutor interface {
	ExecuteRun(ctx context.Context, run *entity.RunStatus, cases []entity.RawCase) error
}

// StatusReader is the cross-instance status cache.
type StatusReader interface {
	Get(ctx context.Context, runId string) (*entity.RunStatus, error)
}

type RunConfig struct {
	DefaultCases           int
	GuardrailSeverity      float64
	GuardrailConfidencePct float64
	RagTopK                int
	DispatchDryRun         bool
}

type IRunService interface {
	StartRun(ctx context.Context, req *dto.StartRunRequest) (*dto.StartRunResponse, error)
	GetRunStatus(ctx context.Context, runId string) (*dto.RunStatusResponse, error)
	// Wait blocks until every run started so far has returned.
	Wait()
	// Shutdown cancels unfinished runs and waits for them to return.
	Shutdown()
}

type runService struct {
	uowFactory unitofwork.RepositoryFactory
	executor   RunExecutor
	statuses   *memory.RunStatusRepository
	cache      StatusReader
	audit      IAuditService
	publisher  pipeline.ProgressPublisher
	corpus     []entity.RawCase
	config     RunConfig
	logger     logger.ILogger

	baseCtx   context.Context
	cancelAll context.CancelFunc
	mu        sync.Mutex
	cancels   map[string]context.CancelFunc
	wg        sync.WaitGroup
}

func NewRunService(
	uowFactory unitofwork.RepositoryFactory,
	executor RunExecutor,
	statuses *memory.RunStatusRepository,
	cache StatusReader,
	audit IAuditService,
	publisher pipeline.ProgressPublisher,
	corpus []entity.RawCase,
	config RunConfig,
	log logger.ILogger,
) IRunService {
	if config.DefaultCases <= 0 {
		config.DefaultCases = 20
	}
	baseCtx, cancelAll := context.WithCancel(context.Background())
	return &runService{
		uowFactory: uowFactory,
		executor:   executor,
		statuses:   statuses,
		cache:      cache,
		audit:      audit,
		publisher:  publisher,
		corpus:     corpus,
		config:     config,
		logger:     log,
		baseCtx:    baseCtx,
		cancelAll:  cancelAll,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// StartRun persists the run and returns at once; cases are scored in the
// background on a context owned by the service, not by the request.
func (s *runService) StartRun(ctx context.Context, req *dto.StartRunRequest) (*dto.StartRunResponse, error) {
	n := req.NumCases
	if n <= 0 {
		n = s.config.DefaultCases
	}
	if n > len(s.corpus) {
		n = len(s.corpus)
	}
	selected := append([]entity.RawCase(nil), s.corpus[:n]...)

	run := entity.NewRunStatus(uuid.NewString(), len(selected), time.Now().UTC())
	s.statuses.Save(run.Snapshot())

	runConfig := map[string]interface{}{
		"num_cases":                          len(selected),
		"guardrail_severity_threshold":       s.config.GuardrailSeverity,
		"guardrail_confidence_threshold_pct": s.config.GuardrailConfidencePct,
		"rag_top_k":                          s.config.RagTopK,
		"dispatch_dry_run":                   s.config.DispatchDryRun,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.RunRepository().Create(ctx, run.Event(runConfig)); err != nil {
		s.statuses.Delete(run.RunId)
		return nil, fmt.Errorf("insert run: %w", err)
	}
	if err := s.audit.Log(ctx, run.RunId, nil, entity.AuditRunStarted, "system", runConfig); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, pipeline.ProgressEvent(run, events.RunStarted, run.StartedAt)); err != nil {
			s.logger.Warn("RUN", "Publish run.started failed", map[string]interface{}{"run_id": run.RunId, "error": err.Error()})
		}
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	s.cancels[run.RunId] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, run.RunId)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.executor.ExecuteRun(runCtx, run, selected); err != nil {
			s.logger.Error("RUN", "Run ended with error", map[string]interface{}{"run_id": run.RunId, "error": err.Error()})
			return
		}
		s.logger.Info("RUN", "Run completed", map[string]interface{}{"run_id": run.RunId, "cases": len(selected)})
	}()

	s.logger.Info("RUN", "Run started", map[string]interface{}{"run_id": run.RunId, "cases": len(selected)})
	return &dto.StartRunResponse{RunId: run.RunId, Status: string(entity.RunRunning)}, nil
}

// GetRunStatus prefers live state, then the shared cache, then the latest
// runs row.
func (s *runService) GetRunStatus(ctx context.Context, runId string) (*dto.RunStatusResponse, error) {
	if status, ok := s.statuses.Get(runId); ok {
		return toRunStatusResponse(status), nil
	}

	if s.cache != nil {
		status, err := s.cache.Get(ctx, runId)
		if err != nil {
			s.logger.Warn("RUN", "Status cache read failed", map[string]interface{}{"run_id": runId, "error": err.Error()})
		} else if status != nil {
			return toRunStatusResponse(status), nil
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := uow.RunRepository().FindOne(ctx, specification.ByRunId{RunId: runId}, specification.NewestFirst())
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, newError(ErrNotFound, "Run '%s' not found", runId)
	}
	return toRunStatusResponse(row.ToStatus()), nil
}

func (s *runService) Wait() {
	s.wg.Wait()
}

func (s *runService) Shutdown() {
	s.mu.Lock()
	pending := len(s.cancels)
	s.mu.Unlock()
	if pending > 0 {
		s.logger.Warn("RUN", "Cancelling unfinished runs", map[string]interface{}{"count": pending})
	}
	s.cancelAll()
	s.wg.Wait()
}

func toRunStatusResponse(s *entity.RunStatus) *dto.RunStatusResponse {
	return &dto.RunStatusResponse{
		RunId:     s.RunId,
		Status:    string(s.Status),
		Processed: s.Processed,
		Total:     s.Total,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Error:     s.Error,
	}
}
