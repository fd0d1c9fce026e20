package implementation

import (
	"sentinel-be/internal/entity"
	"sentinel-be/internal/mapper"
	"sentinel-be/internal/model"
	"sentinel-be/internal/repository/contract"

	"gorm.io/gorm"
)

type CaseRepositoryImpl struct {
	baseRepository[model.Case, entity.CaseRecord]
}

func NewCaseRepository(db *gorm.DB) contract.CaseRepository {
	return &CaseRepositoryImpl{baseRepository[model.Case, entity.CaseRecord]{db: db, mapper: mapper.NewCaseMapper()}}
}

type AgentOutputRepositoryImpl struct {
	baseRepository[model.AgentOutput, entity.AgentOutputRecord]
}

func NewAgentOutputRepository(db *gorm.DB) contract.AgentOutputRepository {
	return &AgentOutputRepositoryImpl{baseRepository[model.AgentOutput, entity.AgentOutputRecord]{db: db, mapper: mapper.NewAgentOutputMapper()}}
}

type DecisionRepositoryImpl struct {
	baseRepository[model.Decision, entity.Decision]
}

func NewDecisionRepository(db *gorm.DB) contract.DecisionRepository {
	return &DecisionRepositoryImpl{baseRepository[model.Decision, entity.Decision]{db: db, mapper: mapper.NewDecisionMapper()}}
}

type ApprovalRepositoryImpl struct {
	baseRepository[model.Approval, entity.ApprovalRecord]
}

func NewApprovalRepository(db *gorm.DB) contract.ApprovalRepository {
	return &ApprovalRepositoryImpl{baseRepository[model.Approval, entity.ApprovalRecord]{db: db, mapper: mapper.NewApprovalMapper()}}
}

type SuggestionExecutionRepositoryImpl struct {
	baseRepository[model.SuggestionExecution, entity.SuggestionExecution]
}

func NewSuggestionExecutionRepository(db *gorm.DB) contract.SuggestionExecutionRepository {
	return &SuggestionExecutionRepositoryImpl{baseRepository[model.SuggestionExecution, entity.SuggestionExecution]{db: db, mapper: mapper.NewSuggestionExecutionMapper()}}
}

type RunRepositoryImpl struct {
	baseRepository[model.Run, entity.RunEvent]
}

func NewRunRepository(db *gorm.DB) contract.RunRepository {
	return &RunRepositoryImpl{baseRepository[model.Run, entity.RunEvent]{db: db, mapper: mapper.NewRunMapper()}}
}

type MetricRepositoryImpl struct {
	baseRepository[model.Metric, entity.RunMetrics]
}

func NewMetricRepository(db *gorm.DB) contract.MetricRepository {
	return &MetricRepositoryImpl{baseRepository[model.Metric, entity.RunMetrics]{db: db, mapper: mapper.NewMetricMapper()}}
}

type StrategyMemoryRepositoryImpl struct {
	baseRepository[model.StrategyMemory, entity.StrategyMemory]
}

func NewStrategyMemoryRepository(db *gorm.DB) contract.StrategyMemoryRepository {
	return &StrategyMemoryRepositoryImpl{baseRepository[model.StrategyMemory, entity.StrategyMemory]{db: db, mapper: mapper.NewStrategyMemoryMapper()}}
}

type AuditLogRepositoryImpl struct {
	baseRepository[model.AuditLog, entity.AuditEvent]
}

func NewAuditLogRepository(db *gorm.DB) contract.AuditLogRepository {
	return &AuditLogRepositoryImpl{baseRepository[model.AuditLog, entity.AuditEvent]{db: db, mapper: mapper.NewAuditLogMapper()}}
}
