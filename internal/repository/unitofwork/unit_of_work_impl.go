package unitofwork

import (
	"context"
	"fmt"

	"sentinel-be/internal/repository/contract"
	"sentinel-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // set between Begin and Commit/Rollback
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) CaseRepository() contract.CaseRepository {
	return implementation.NewCaseRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AgentOutputRepository() contract.AgentOutputRepository {
	return implementation.NewAgentOutputRepository(u.getDB())
}

func (u *UnitOfWorkImpl) DecisionRepository() contract.DecisionRepository {
	return implementation.NewDecisionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ApprovalRepository() contract.ApprovalRepository {
	return implementation.NewApprovalRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SuggestionExecutionRepository() contract.SuggestionExecutionRepository {
	return implementation.NewSuggestionExecutionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RunRepository() contract.RunRepository {
	return implementation.NewRunRepository(u.getDB())
}

func (u *UnitOfWorkImpl) MetricRepository() contract.MetricRepository {
	return implementation.NewMetricRepository(u.getDB())
}

func (u *UnitOfWorkImpl) StrategyMemoryRepository() contract.StrategyMemoryRepository {
	return implementation.NewStrategyMemoryRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AuditLogRepository() contract.AuditLogRepository {
	return implementation.NewAuditLogRepository(u.getDB())
}
