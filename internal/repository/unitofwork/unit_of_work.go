package unitofwork

import (
	"context"

	"sentinel-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CaseRepository() contract.CaseRepository
	AgentOutputRepository() contract.AgentOutputRepository
	DecisionRepository() contract.DecisionRepository
	ApprovalRepository() contract.ApprovalRepository
	SuggestionExecutionRepository() contract.SuggestionExecutionRepository
	RunRepository() contract.RunRepository
	MetricRepository() contract.MetricRepository
	StrategyMemoryRepository() contract.StrategyMemoryRepository
	AuditLogRepository() contract.AuditLogRepository
}

type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
