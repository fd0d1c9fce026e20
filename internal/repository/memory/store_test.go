package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/specification"
)

func TestTableFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for _, d := range []entity.Decision{
		{RunId: "r1", CaseId: "c1", Severity: 1},
		{RunId: "r1", CaseId: "c2", Severity: 2},
		{RunId: "r2", CaseId: "c1", Severity: 3},
	} {
		d := d
		require.NoError(t, store.Decisions.Create(ctx, &d))
		assert.False(t, d.CreatedAt.IsZero())
	}

	latest, err := store.Decisions.FindOne(ctx, specification.ByCaseId{CaseId: "c1"}, specification.NewestFirst())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "r2", latest.RunId)

	scoped, err := store.Decisions.FindOne(ctx, append(specification.ForCase("c1", "r1"), specification.NewestFirst())...)
	require.NoError(t, err)
	require.NotNil(t, scoped)
	assert.Equal(t, 1.0, scoped.Severity)

	missing, err := store.Decisions.FindOne(ctx, specification.ByCaseId{CaseId: "nope"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	recent, err := store.Decisions.FindAll(ctx, specification.NewestFirst(), specification.Limit(2))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3.0, recent[0].Severity)
	assert.Equal(t, 2.0, recent[1].Severity)
}

func TestTableReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Runs.Create(ctx, &entity.RunEvent{RunId: "r1", Status: entity.RunRunning}))

	got, err := store.Runs.FindOne(ctx, specification.ByRunId{RunId: "r1"})
	require.NoError(t, err)
	got.Status = entity.RunFailed

	again, err := store.Runs.FindOne(ctx, specification.ByRunId{RunId: "r1"})
	require.NoError(t, err)
	assert.Equal(t, entity.RunRunning, again.Status)
}

func TestAuditFilterByEventType(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	run, c := "r1", "c1"

	require.NoError(t, store.AuditLogs.Create(ctx, &entity.AuditEvent{RunId: &run, CaseId: &c, EventType: entity.AuditCaseProcessingStarted}))
	require.NoError(t, store.AuditLogs.Create(ctx, &entity.AuditEvent{RunId: &run, CaseId: &c, EventType: entity.AuditRagContextBuilt}))
	require.NoError(t, store.AuditLogs.Create(ctx, &entity.AuditEvent{RunId: &run, EventType: entity.AuditRunCompleted}))

	events, err := store.AuditLogs.FindAll(ctx, specification.ByCaseId{CaseId: c}, specification.ByEventType{EventType: entity.AuditRagContextBuilt})
	require.NoError(t, err)
	require.Len(t, events, 1)

	byRun, err := store.AuditLogs.FindAll(ctx, specification.ByRunId{RunId: run})
	require.NoError(t, err)
	assert.Len(t, byRun, 3)
}

func TestRunStatusRepository(t *testing.T) {
	repo := NewRunStatusRepository()
	repo.Save(entity.RunStatus{RunId: "r1", Status: entity.RunRunning, Processed: 2})

	got, ok := repo.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 2, got.Processed)

	repo.Delete("r1")
	_, ok = repo.Get("r1")
	assert.False(t, ok)
}
