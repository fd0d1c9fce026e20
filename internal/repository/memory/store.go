package memory

import (
	"time"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/contract"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Store holds every table in process memory. It backs tests and DB-less demos.
type Store struct {
	Cases                *table[entity.CaseRecord]
	AgentOutputs         *table[entity.AgentOutputRecord]
	Decisions            *table[entity.Decision]
	Approvals            *table[entity.ApprovalRecord]
	SuggestionExecutions *table[entity.SuggestionExecution]
	Runs                 *table[entity.RunEvent]
	Metrics              *table[entity.RunMetrics]
	StrategyMemory       *table[entity.StrategyMemory]
	AuditLogs            *table[entity.AuditEvent]
}

func NewStore() *Store {
	return &Store{
		Cases: newTable(keys[entity.CaseRecord]{
			caseId: func(e *entity.CaseRecord) string { return e.CaseId },
			runId:  func(e *entity.CaseRecord) string { return e.RunId },
			stamp:  func(e *entity.CaseRecord, t time.Time) { e.CreatedAt = t },
		}),
		AgentOutputs: newTable(keys[entity.AgentOutputRecord]{
			caseId: func(e *entity.AgentOutputRecord) string { return e.CaseId },
			runId:  func(e *entity.AgentOutputRecord) string { return e.RunId },
			stamp:  func(e *entity.AgentOutputRecord, t time.Time) { e.CreatedAt = t },
		}),
		Decisions: newTable(keys[entity.Decision]{
			caseId: func(e *entity.Decision) string { return e.CaseId },
			runId:  func(e *entity.Decision) string { return e.RunId },
			stamp:  func(e *entity.Decision, t time.Time) { e.CreatedAt = t },
		}),
		Approvals: newTable(keys[entity.ApprovalRecord]{
			caseId: func(e *entity.ApprovalRecord) string { return e.CaseId },
			runId:  func(e *entity.ApprovalRecord) string { return e.RunId },
			stamp:  func(e *entity.ApprovalRecord, t time.Time) { e.CreatedAt = t },
		}),
		SuggestionExecutions: newTable(keys[entity.SuggestionExecution]{
			caseId: func(e *entity.SuggestionExecution) string { return e.CaseId },
			runId:  func(e *entity.SuggestionExecution) string { return e.RunId },
			stamp:  func(e *entity.SuggestionExecution, t time.Time) { e.CreatedAt = t },
		}),
		Runs: newTable(keys[entity.RunEvent]{
			runId: func(e *entity.RunEvent) string { return e.RunId },
			stamp: func(e *entity.RunEvent, t time.Time) { e.CreatedAt = t },
		}),
		Metrics: newTable(keys[entity.RunMetrics]{
			runId: func(e *entity.RunMetrics) string { return e.RunId },
			stamp: func(e *entity.RunMetrics, t time.Time) { e.CreatedAt = t },
		}),
		StrategyMemory: newTable(keys[entity.StrategyMemory]{
			caseId: func(e *entity.StrategyMemory) string { return e.CaseId },
			runId:  func(e *entity.StrategyMemory) string { return e.RunId },
			stamp:  func(e *entity.StrategyMemory, t time.Time) { e.CreatedAt = t },
		}),
		AuditLogs: newTable(keys[entity.AuditEvent]{
			caseId:    func(e *entity.AuditEvent) string { return deref(e.CaseId) },
			runId:     func(e *entity.AuditEvent) string { return deref(e.RunId) },
			eventType: func(e *entity.AuditEvent) string { return e.EventType },
			stamp:     func(e *entity.AuditEvent, t time.Time) { e.CreatedAt = t },
		}),
	}
}

var (
	_ contract.CaseRepository                = (*table[entity.CaseRecord])(nil)
	_ contract.AgentOutputRepository         = (*table[entity.AgentOutputRecord])(nil)
	_ contract.DecisionRepository            = (*table[entity.Decision])(nil)
	_ contract.ApprovalRepository            = (*table[entity.ApprovalRecord])(nil)
	_ contract.SuggestionExecutionRepository = (*table[entity.SuggestionExecution])(nil)
	_ contract.RunRepository                 = (*table[entity.RunEvent])(nil)
	_ contract.MetricRepository              = (*table[entity.RunMetrics])(nil)
	_ contract.StrategyMemoryRepository      = (*table[entity.StrategyMemory])(nil)
	_ contract.AuditLogRepository            = (*table[entity.AuditEvent])(nil)
)
