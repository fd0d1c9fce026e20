package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/internal/dto"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/pkg/logger"
	"sentinel-be/internal/repository/memory"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/pkg/events"
)

// blockingExecutor completes a run once released, or leaves it running when
// its context is cancelled.
type blockingExecutor struct {
	statuses *memory.RunStatusRepository
	release  chan struct{}
	mu       sync.Mutex
	got      []entity.RawCase
}

func (e *blockingExecutor) ExecuteRun(ctx context.Context, run *entity.RunStatus, cases []entity.RawCase) error {
	e.mu.Lock()
	e.got = cases
	e.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.release:
	}
	run.Processed = len(cases)
	if err := run.Transition(entity.RunCompleted, time.Now().UTC(), nil); err != nil {
		return err
	}
	e.statuses.Save(run.Snapshot())
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.RunProgressEvent
}

func (p *capturePublisher) Publish(_ context.Context, e events.RunProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fakeStatusCache struct {
	mu    sync.Mutex
	rows  map[string]entity.RunStatus
	err   error
	saved int
}

func (c *fakeStatusCache) Get(_ context.Context, runId string) (*entity.RunStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if s, ok := c.rows[runId]; ok {
		return &s, nil
	}
	return nil, nil
}

func (c *fakeStatusCache) Save(_ context.Context, s entity.RunStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rows == nil {
		c.rows = map[string]entity.RunStatus{}
	}
	c.rows[s.RunId] = s
	c.saved++
	return nil
}

func corpus(n int) []entity.RawCase {
	out := make([]entity.RawCase, n)
	for i := range out {
		out[i] = entity.RawCase{CaseId: string(rune('a' + i)), Country: "Peru", Date: "2024-01-01"}
	}
	return out
}

type runFixture struct {
	store     *memory.Store
	statuses  *memory.RunStatusRepository
	executor  *blockingExecutor
	publisher *capturePublisher
	cache     *fakeStatusCache
	svc       IRunService
}

func newRunFixture(t *testing.T, cases int) *runFixture {
	t.Helper()
	factory := unitofwork.NewMemoryRepositoryFactory(nil)
	statuses := memory.NewRunStatusRepository()
	f := &runFixture{
		store:     factory.Store,
		statuses:  statuses,
		executor:  &blockingExecutor{statuses: statuses, release: make(chan struct{})},
		publisher: &capturePublisher{},
		cache:     &fakeStatusCache{},
	}
	f.svc = NewRunService(factory, f.executor, statuses, f.cache, NewAuditService(factory), f.publisher, corpus(cases), RunConfig{
		DefaultCases:           3,
		GuardrailSeverity:      7,
		GuardrailConfidencePct: 60,
		RagTopK:                3,
		DispatchDryRun:         true,
	}, logger.NewNopLogger())
	t.Cleanup(f.svc.Shutdown)
	return f
}

func TestStartRunCompletes(t *testing.T) {
	f := newRunFixture(t, 5)

	res, err := f.svc.StartRun(context.Background(), &dto.StartRunRequest{})
	require.NoError(t, err)
	assert.Equal(t, "running", res.Status)
	require.NotEmpty(t, res.RunId)

	status, err := f.svc.GetRunStatus(context.Background(), res.RunId)
	require.NoError(t, err)
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 3, status.Total)

	row, err := f.store.Runs.FindOne(context.Background(), specification.ByRunId{RunId: res.RunId})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, entity.RunRunning, row.Status)
	assert.Equal(t, 3, row.Config["num_cases"])
	assert.Equal(t, true, row.Config["dispatch_dry_run"])

	audit, err := f.store.AuditLogs.FindOne(context.Background(), specification.ByEventType{EventType: entity.AuditRunStarted})
	require.NoError(t, err)
	require.NotNil(t, audit)
	assert.Nil(t, audit.CaseId)
	assert.Equal(t, 7.0, audit.Payload["guardrail_severity_threshold"])

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.RunStarted, f.publisher.events[0].Type)

	close(f.executor.release)
	f.svc.Wait()

	status, err = f.svc.GetRunStatus(context.Background(), res.RunId)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 3, status.Processed)
	assert.NotNil(t, status.EndedAt)

	f.executor.mu.Lock()
	defer f.executor.mu.Unlock()
	require.Len(t, f.executor.got, 3)
	assert.Equal(t, "a", f.executor.got[0].CaseId)
}

func TestStartRunClampsToCorpus(t *testing.T) {
	f := newRunFixture(t, 2)
	close(f.executor.release)

	res, err := f.svc.StartRun(context.Background(), &dto.StartRunRequest{NumCases: 50})
	require.NoError(t, err)
	f.svc.Wait()

	status, err := f.svc.GetRunStatus(context.Background(), res.RunId)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Total)
}

func TestShutdownLeavesRunRunning(t *testing.T) {
	f := newRunFixture(t, 3)

	res, err := f.svc.StartRun(context.Background(), &dto.StartRunRequest{NumCases: 1})
	require.NoError(t, err)
	f.svc.Shutdown()

	status, err := f.svc.GetRunStatus(context.Background(), res.RunId)
	require.NoError(t, err)
	assert.Equal(t, "running", status.Status)
}

func TestGetRunStatusFallbacks(t *testing.T) {
	f := newRunFixture(t, 1)
	ended := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	f.cache.rows = map[string]entity.RunStatus{
		"cached": {RunId: "cached", Status: entity.RunCompleted, Processed: 4, Total: 4, EndedAt: &ended},
	}
	require.NoError(t, f.store.Runs.Create(context.Background(), &entity.RunEvent{RunId: "stored", Status: entity.RunRunning, NumCases: 6}))
	msg := "boom"
	require.NoError(t, f.store.Runs.Create(context.Background(), &entity.RunEvent{RunId: "stored", Status: entity.RunFailed, NumCases: 6, Processed: 2, Error: &msg}))

	tests := []struct {
		name       string
		runId      string
		wantStatus string
		wantDone   int
	}{
		{name: "from cache", runId: "cached", wantStatus: "completed", wantDone: 4},
		{name: "from latest runs row", runId: "stored", wantStatus: "failed", wantDone: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := f.svc.GetRunStatus(context.Background(), tt.runId)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, tt.wantDone, status.Processed)
		})
	}

	_, err := f.svc.GetRunStatus(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Run 'ghost' not found", err.Error())

	f.cache.err = errors.New("redis down")
	status, err := f.svc.GetRunStatus(context.Background(), "stored")
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
}

type deliveryRecorder struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func (d *deliveryRecorder) SendRun(runId string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frames == nil {
		d.frames = map[string][][]byte{}
	}
	d.frames[runId] = append(d.frames[runId], data)
}

func (d *deliveryRecorder) count(runId string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames[runId])
}

type failingStream struct{}

func (failingStream) Publish(context.Context, events.Event) error {
	return errors.New("nats unavailable")
}

func TestProgressFanOut(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := &fakeStatusCache{}
	delivery := &deliveryRecorder{}
	consumer := NewProgressConsumer(pubSub, RunProgressTopic, ProgressSinks{
		Cache:    cache,
		Stream:   failingStream{},
		Delivery: delivery,
	}, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewProgressPublisher(RunProgressTopic, pubSub)
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, publisher.Publish(ctx, events.RunProgressEvent{
		Type: events.RunProgress, RunId: "r1", Status: "running", Processed: 1, Total: 3, StartedAt: started, OccurredAt: started,
	}))
	require.NoError(t, publisher.Publish(ctx, events.RunProgressEvent{
		Type: events.RunFailed, RunId: "r1", Status: "failed", Processed: 1, Total: 3, Error: "stage failed", StartedAt: started, OccurredAt: started,
	}))

	require.Eventually(t, func() bool { return delivery.count("r1") == 2 }, 2*time.Second, 10*time.Millisecond)

	status, err := cache.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, entity.RunFailed, status.Status)
	require.NotNil(t, status.Error)
	assert.Equal(t, "stage failed", *status.Error)

	var frame struct {
		Type string                  `json:"type"`
		Data events.RunProgressEvent `json:"data"`
	}
	delivery.mu.Lock()
	raw := delivery.frames["r1"][0]
	delivery.mu.Unlock()
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, "run_event", frame.Type)
	assert.Equal(t, events.RunProgress, frame.Data.Type)
}
