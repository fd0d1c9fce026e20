package service

import (
	"context"
	"fmt"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
)

type IAuditService interface {
	Log(ctx context.Context, runId string, caseId *string, eventType, actor string, payload map[string]interface{}) error
	Trail(ctx context.Context, caseId, runId string, limit int) ([]*entity.AuditEvent, error)
}

type auditService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewAuditService(uowFactory unitofwork.RepositoryFactory) IAuditService {
	return &auditService{uowFactory: uowFactory}
}

// Log appends one audit_logs row. An empty runId is stored as NULL.
func (s *auditService) Log(ctx context.Context, runId string, caseId *string, eventType, actor string, payload map[string]interface{}) error {
	var run *string
	if runId != "" {
		run = &runId
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AuditLogRepository().Create(ctx, &entity.AuditEvent{
		RunId:     run,
		CaseId:    caseId,
		EventType: eventType,
		Actor:     actor,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("audit %s: %w", eventType, err)
	}
	return nil
}

// Trail returns the newest events of one case within one run.
func (s *auditService) Trail(ctx context.Context, caseId, runId string, limit int) ([]*entity.AuditEvent, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := append(specification.ForCase(caseId, runId), specification.NewestFirst(), specification.Limit(limit))
	return uow.AuditLogRepository().FindAll(ctx, specs...)
}
