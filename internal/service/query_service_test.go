package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/internal/dto"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/memory"
	"sentinel-be/internal/repository/unitofwork"
)

// seedCaseRun writes the rows one processed case leaves behind in a run.
func seedCaseRun(t *testing.T, store *memory.Store, caseId, runId string, severity float64, eligible bool) {
	t.Helper()
	ctx := context.Background()
	audit := NewAuditService(unitofwork.NewMemoryRepositoryFactory(store))
	id := caseId

	require.NoError(t, audit.Log(ctx, runId, &id, entity.AuditCaseProcessingStarted, "system", nil))
	require.NoError(t, store.Cases.Create(ctx, &entity.CaseRecord{
		CaseId:      caseId,
		RunId:       runId,
		CaseDate:    "2024-03-01",
		Country:     "Kenya",
		City:        "Nairobi",
		Normalized:  map[string]interface{}{"date": "2024-03-01"},
		GroundTruth: map[string]interface{}{"true_outbreak": true},
	}))
	require.NoError(t, audit.Log(ctx, runId, &id, entity.AuditRagContextBuilt, "system", map[string]interface{}{"run": runId}))
	for _, name := range entity.AgentNames {
		require.NoError(t, store.AgentOutputs.Create(ctx, &entity.AgentOutputRecord{
			RunId: runId, CaseId: caseId, AgentName: name, Output: map[string]interface{}{"agent": name},
		}))
	}
	require.NoError(t, store.Decisions.Create(ctx, &entity.Decision{
		RunId:                runId,
		CaseId:               caseId,
		Severity:             severity,
		Confidence:           71.23456,
		EligibleForApproval:  eligible,
		Contributions:        map[string]interface{}{"genomics": 0.5},
		RecommendedThreshold: 0.7,
		Suggestion:           "Escalate " + caseId,
	}))
	status := entity.ApprovalNotRequired
	if eligible {
		status = entity.ApprovalPending
	}
	require.NoError(t, store.Approvals.Create(ctx, &entity.ApprovalRecord{
		RunId: runId, CaseId: caseId, Status: status, ReviewNotes: "auto-created by guardrail",
	}))
}

func TestGetCaseDetailScopesToRun(t *testing.T) {
	factory := unitofwork.NewMemoryRepositoryFactory(nil)
	seedCaseRun(t, factory.Store, "c1", "r1", 8.1, true)
	seedCaseRun(t, factory.Store, "c1", "r2", 3.2, false)
	svc := NewCaseService(factory, NewAuditService(factory))

	tests := []struct {
		name         string
		runId        string
		wantRun      string
		wantSeverity float64
	}{
		{name: "latest run by default", runId: "", wantRun: "r2", wantSeverity: 3.2},
		{name: "explicit older run", runId: "r1", wantRun: "r1", wantSeverity: 8.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.GetCaseDetail(context.Background(), "c1", tt.runId)
			require.NoError(t, err)

			assert.Equal(t, tt.wantRun, res.Case.RunId)
			require.NotNil(t, res.Decision)
			assert.Equal(t, tt.wantRun, res.Decision.RunId)
			assert.Equal(t, tt.wantSeverity, res.Decision.Severity)
			assert.Equal(t, "Escalate c1", res.Suggestion)
			assert.Equal(t, map[string]interface{}{"run": tt.wantRun}, res.RagContextSources)

			var agents []string
			for _, o := range res.AgentOutputs {
				assert.Equal(t, tt.wantRun, o.RunId)
				agents = append(agents, o.AgentName)
			}
			if diff := cmp.Diff(entity.AgentNames, agents); diff != "" {
				t.Errorf("agent output order (-want +got):\n%s", diff)
			}

			require.Len(t, res.Approvals, 1)
			require.Len(t, res.AuditTrail, 2)
			assert.Equal(t, entity.AuditRagContextBuilt, res.AuditTrail[0].EventType)
			assert.Equal(t, entity.AuditCaseProcessingStarted, res.AuditTrail[1].EventType)
			assert.Equal(t, true, res.Case.GroundTruth["true_outbreak"])
		})
	}
}

func TestGetCaseDetailNotFound(t *testing.T) {
	factory := unitofwork.NewMemoryRepositoryFactory(nil)
	seedCaseRun(t, factory.Store, "c1", "r1", 8.1, true)
	svc := NewCaseService(factory, NewAuditService(factory))

	_, err := svc.GetCaseDetail(context.Background(), "c2", "")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Case 'c2' not found", err.Error())

	_, err = svc.GetCaseDetail(context.Background(), "c1", "r9")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Case 'c1' not found in run 'r9'", err.Error())
}

func TestGetCaseDetailWithoutDecision(t *testing.T) {
	factory := unitofwork.NewMemoryRepositoryFactory(nil)
	require.NoError(t, factory.Store.Cases.Create(context.Background(), &entity.CaseRecord{CaseId: "c1", RunId: "r1"}))
	svc := NewCaseService(factory, NewAuditService(factory))

	res, err := svc.GetCaseDetail(context.Background(), "c1", "")
	require.NoError(t, err)
	assert.Nil(t, res.Decision)
	assert.Empty(t, res.Suggestion)
	assert.Equal(t, map[string]interface{}{}, res.RagContextSources)
	assert.NotNil(t, res.AgentOutputs)
	assert.NotNil(t, res.AuditTrail)
}

func TestGetCaseDetailBoundsReads(t *testing.T) {
	ctx := context.Background()
	factory := unitofwork.NewMemoryRepositoryFactory(nil)
	store := factory.Store
	require.NoError(t, store.Cases.Create(ctx, &entity.CaseRecord{CaseId: "c1", RunId: "r1"}))
	for i := 0; i < caseOutputLimit+10; i++ {
		require.NoError(t, store.AgentOutputs.Create(ctx, &entity.AgentOutputRecord{
			RunId: "r1", CaseId: "c1", AgentName: entity.AgentMeta, Output: map[string]interface{}{"n": i},
		}))
	}
	for i := 0; i < caseApprovalLimit+10; i++ {
		require.NoError(t, store.Approvals.Create(ctx, &entity.ApprovalRecord{
			RunId: "r1", CaseId: "c1", Status: entity.ApprovalPending, ReviewNotes: fmt.Sprintf("review %d", i),
		}))
	}
	svc := NewCaseService(factory, NewAuditService(factory))

	res, err := svc.GetCaseDetail(ctx, "c1", "r1")
	require.NoError(t, err)
	assert.Len(t, res.AgentOutputs, caseOutputLimit)
	require.Len(t, res.Approvals, caseApprovalLimit)
	assert.Equal(t, fmt.Sprintf("review %d", caseApprovalLimit+9), res.Approvals[0].Notes)
}

func TestGetDashboard(t *testing.T) {
	factory := unitofwork.NewMemoryRepositoryFactory(nil)
	store := factory.Store
	seedCaseRun(t, store, "c1", "r1", 8.12345, true)
	seedCaseRun(t, store, "c2", "r1", 2.5, false)
	seedCaseRun(t, store, "c3", "r1", 9.0, true)
	require.NoError(t, store.Approvals.Create(context.Background(), &entity.ApprovalRecord{
		RunId: "r1", CaseId: "c3", Status: entity.ApprovalApproved,
	}))
	require.NoError(t, store.Metrics.Create(context.Background(), &entity.RunMetrics{RunId: "r1", FalseAlarmRate: 0.25}))

	res, err := NewDashboardService(factory).GetDashboard(context.Background())
	require.NoError(t, err)

	var statuses []string
	for _, c := range res.RecentCases {
		statuses = append(statuses, c.CaseId+":"+c.Status)
	}
	if diff := cmp.Diff([]string{"c3:approved", "c2:not_required", "c1:pending"}, statuses); diff != "" {
		t.Errorf("recent case statuses (-want +got):\n%s", diff)
	}
	assert.Equal(t, 8.123, res.RecentCases[2].Severity)
	assert.Equal(t, 71.235, res.RecentCases[2].Confidence)

	want := []dto.PendingApproval{{
		CaseId: "c1", RunId: "r1", Severity: 8.123, Confidence: 71.235, Status: "pending", Suggestion: "Escalate c1",
	}}
	if diff := cmp.Diff(want, res.PendingApprovalsQueue); diff != "" {
		t.Errorf("pending queue (-want +got):\n%s", diff)
	}
	assert.Len(t, res.CaseDetailsSummary, 3)
	assert.Equal(t, "r1", res.CurrentRunMetrics["run_id"])
	assert.Equal(t, 0.25, res.CurrentRunMetrics["false_alarm_rate"])
}

func TestGetDashboardEmpty(t *testing.T) {
	res, err := NewDashboardService(unitofwork.NewMemoryRepositoryFactory(nil)).GetDashboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.RecentCases)
	assert.Equal(t, map[string]interface{}{}, res.CurrentRunMetrics)
	assert.NotNil(t, res.PendingApprovalsQueue)
}
