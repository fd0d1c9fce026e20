package unitofwork

import (
	"context"

	"sentinel-be/internal/repository/contract"
	"sentinel-be/internal/repository/memory"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db: db,
	}
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}

// MemoryRepositoryFactory hands out units of work over a shared in-memory store.
type MemoryRepositoryFactory struct {
	Store *memory.Store
}

func NewMemoryRepositoryFactory(store *memory.Store) *MemoryRepositoryFactory {
	if store == nil {
		store = memory.NewStore()
	}
	return &MemoryRepositoryFactory{Store: store}
}

func (f *MemoryRepositoryFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return &memoryUnitOfWork{store: f.Store}
}

// memoryUnitOfWork writes straight through; Begin/Commit/Rollback only
// track state so callers keep the same control flow as with GORM.
type memoryUnitOfWork struct {
	store  *memory.Store
	active bool
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return errTxStarted
	}
	u.active = true
	return nil
}

func (u *memoryUnitOfWork) Commit() error {
	if !u.active {
		return errNoTx
	}
	u.active = false
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	if !u.active {
		return errNoTx
	}
	u.active = false
	return nil
}

func (u *memoryUnitOfWork) CaseRepository() contract.CaseRepository {
	return u.store.Cases
}

func (u *memoryUnitOfWork) AgentOutputRepository() contract.AgentOutputRepository {
	return u.store.AgentOutputs
}

func (u *memoryUnitOfWork) DecisionRepository() contract.DecisionRepository {
	return u.store.Decisions
}

func (u *memoryUnitOfWork) ApprovalRepository() contract.ApprovalRepository {
	return u.store.Approvals
}

func (u *memoryUnitOfWork) SuggestionExecutionRepository() contract.SuggestionExecutionRepository {
	return u.store.SuggestionExecutions
}

func (u *memoryUnitOfWork) RunRepository() contract.RunRepository {
	return u.store.Runs
}

func (u *memoryUnitOfWork) MetricRepository() contract.MetricRepository {
	return u.store.Metrics
}

func (u *memoryUnitOfWork) StrategyMemoryRepository() contract.StrategyMemoryRepository {
	return u.store.StrategyMemory
}

func (u *memoryUnitOfWork) AuditLogRepository() contract.AuditLogRepository {
	return u.store.AuditLogs
}
