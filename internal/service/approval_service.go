package service

import (
	"context"
	"fmt"
	"strings"

	"sentinel-be/internal/dispatch"
	"sentinel-be/internal/dto"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/pkg/logger"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
)

type IApprovalService interface {
	ApplyApproval(ctx context.Context, caseId string, req *dto.ApprovalRequest) (*dto.ApprovalResponse, error)
	ExecuteSuggestion(ctx context.Context, caseId string, req *dto.SuggestionExecuteRequest) (*dto.SuggestionExecuteResponse, error)
}

type approvalService struct {
	uowFactory unitofwork.RepositoryFactory
	dispatcher dispatch.IManager
	audit      IAuditService
	logger     logger.ILogger
}

func NewApprovalService(
	uowFactory unitofwork.RepositoryFactory,
	dispatcher dispatch.IManager,
	audit IAuditService,
	log logger.ILogger,
) IApprovalService {
	return &approvalService{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     log,
	}
}

func (s *approvalService) latestDecision(ctx context.Context, uow unitofwork.UnitOfWork, caseId, runId string) (*entity.Decision, error) {
	return uow.DecisionRepository().FindOne(ctx, append(specification.ForCase(caseId, runId), specification.NewestFirst())...)
}

// dispatchSafely turns a dispatcher error or panic into a recorded
// dispatch_error result.
func (s *approvalService) dispatchSafely(ctx context.Context, caseId string, decision entity.Decision, notes string) (out map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("dispatch panicked: %v", r)
		}
	}()
	return s.dispatcher.DispatchIfApproved(ctx, caseId, decision, entity.ApprovalApproved, notes)
}

func (s *approvalService) ApplyApproval(ctx context.Context, caseId string, req *dto.ApprovalRequest) (*dto.ApprovalResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	decision, err := s.latestDecision(ctx, uow, caseId, req.RunId)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		if req.RunId != "" {
			return nil, newError(ErrNotFound, "Case '%s' has no decision in run '%s'", caseId, req.RunId)
		}
		return nil, newError(ErrNotFound, "Case '%s' has no decision", caseId)
	}

	choice := entity.ApprovalDecision(req.Decision)
	if choice == entity.DecisionApprove && !decision.EligibleForApproval {
		return nil, newError(ErrNotEligible, "Case is not eligible for human review approval")
	}
	status := choice.Status()

	result := map[string]interface{}{"dispatched": false, "reason": "not_approved"}
	if status == entity.ApprovalApproved {
		out, err := s.dispatchSafely(ctx, caseId, *decision, req.Notes)
		if err != nil {
			s.logger.Error("APPROVAL", "Dispatch failed", map[string]interface{}{"case_id": caseId, "error": err.Error()})
			result = map[string]interface{}{"dispatched": false, "reason": "dispatch_error", "error": err.Error()}
		} else {
			result = out
		}
	}

	var reviewer *string
	if name := strings.TrimSpace(req.ReviewerName); name != "" {
		reviewer = &name
	}
	if err := uow.ApprovalRepository().Create(ctx, &entity.ApprovalRecord{
		RunId:        decision.RunId,
		CaseId:       caseId,
		Status:       status,
		Reviewer:     reviewer,
		ReviewNotes:  req.Notes,
		DispatchInfo: result,
	}); err != nil {
		return nil, fmt.Errorf("insert approval: %w", err)
	}

	actor := "reviewer"
	if reviewer != nil {
		actor = *reviewer
	}
	if err := s.audit.Log(ctx, decision.RunId, &caseId, entity.AuditApprovalUpdated, actor, map[string]interface{}{
		"decision": req.Decision,
		"status":   string(status),
		"notes":    req.Notes,
		"dispatch": result,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("APPROVAL", "Approval recorded", map[string]interface{}{
		"case_id": caseId,
		"run_id":  decision.RunId,
		"status":  status,
	})
	return &dto.ApprovalResponse{CaseId: caseId, Status: string(status), Dispatch: result}, nil
}

func (s *approvalService) ExecuteSuggestion(ctx context.Context, caseId string, req *dto.SuggestionExecuteRequest) (*dto.SuggestionExecuteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	decision, err := s.latestDecision(ctx, uow, caseId, req.RunId)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, newError(ErrNotFound, "No decision found for case '%s'", caseId)
	}
	suggestion := decision.Suggestion
	if suggestion == "" {
		return nil, newError(ErrNoSuggestion, "No suggestion available for case '%s'", caseId)
	}

	result, err := s.dispatchSafely(ctx, caseId, *decision, "[Suggestion executed] "+suggestion)
	if err != nil {
		s.logger.Error("SUGGESTION", "Suggestion dispatch failed", map[string]interface{}{"case_id": caseId, "error": err.Error()})
		result = map[string]interface{}{
			"dispatched":          false,
			"suggestion_executed": false,
			"reason":              "dispatch_error",
			"error":               err.Error(),
		}
	} else {
		if result == nil {
			result = map[string]interface{}{}
		}
		result["suggestion_executed"] = true
	}

	operator := strings.TrimSpace(req.OperatorName)
	if err := uow.SuggestionExecutionRepository().Create(ctx, &entity.SuggestionExecution{
		RunId:      decision.RunId,
		CaseId:     caseId,
		Suggestion: suggestion,
		Operator:   operator,
		Notes:      req.Notes,
		Dispatch:   result,
	}); err != nil {
		return nil, fmt.Errorf("insert suggestion execution: %w", err)
	}

	actor := operator
	if actor == "" {
		actor = "operator"
	}
	if err := s.audit.Log(ctx, decision.RunId, &caseId, entity.AuditSuggestionExecuted, actor, map[string]interface{}{
		"suggestion": suggestion,
		"dispatch":   result,
		"notes":      req.Notes,
	}); err != nil {
		return nil, err
	}

	dispatched, _ := result["dispatched"].(bool)
	executed, _ := result["suggestion_executed"].(bool)
	return &dto.SuggestionExecuteResponse{
		CaseId:     caseId,
		Suggestion: suggestion,
		Executed:   dispatched || executed,
		Dispatch:   result,
	}, nil
}
