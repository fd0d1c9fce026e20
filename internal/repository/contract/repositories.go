package contract

import (
	"context"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/specification"
)

// Every table is append-only; there are no update or delete operations.

type CaseRepository interface {
	Create(ctx context.Context, c *entity.CaseRecord) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CaseRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CaseRecord, error)
}

type AgentOutputRepository interface {
	Create(ctx context.Context, o *entity.AgentOutputRecord) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AgentOutputRecord, error)
}

type DecisionRepository interface {
	Create(ctx context.Context, d *entity.Decision) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Decision, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Decision, error)
}

type ApprovalRepository interface {
	Create(ctx context.Context, a *entity.ApprovalRecord) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ApprovalRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ApprovalRecord, error)
}

type SuggestionExecutionRepository interface {
	Create(ctx context.Context, s *entity.SuggestionExecution) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SuggestionExecution, error)
}

type RunRepository interface {
	Create(ctx context.Context, r *entity.RunEvent) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RunEvent, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RunEvent, error)
}

type MetricRepository interface {
	Create(ctx context.Context, m *entity.RunMetrics) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RunMetrics, error)
}

type StrategyMemoryRepository interface {
	Create(ctx context.Context, s *entity.StrategyMemory) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.StrategyMemory, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.StrategyMemory, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, a *entity.AuditEvent) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AuditEvent, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AuditEvent, error)
}
