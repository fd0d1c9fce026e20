package mapper

import (
	"sentinel-be/internal/entity"
	"sentinel-be/internal/model"
)

type ApprovalMapper struct{}

func NewApprovalMapper() *ApprovalMapper {
	return &ApprovalMapper{}
}

func (m *ApprovalMapper) ToEntity(e *model.Approval) *entity.ApprovalRecord {
	if e == nil {
		return nil
	}
	return &entity.ApprovalRecord{
		RunId:        e.RunId,
		CaseId:       e.CaseId,
		Status:       entity.ApprovalStatus(e.Status),
		Reviewer:     e.Reviewer,
		ReviewNotes:  e.ReviewNotes,
		DispatchInfo: fromJSON(e.DispatchInfoJson),
		CreatedAt:    e.CreatedAt,
	}
}

func (m *ApprovalMapper) ToModel(e *entity.ApprovalRecord) *model.Approval {
	if e == nil {
		return nil
	}
	return &model.Approval{
		RunId:            e.RunId,
		CaseId:           e.CaseId,
		Status:           string(e.Status),
		Reviewer:         e.Reviewer,
		ReviewNotes:      e.ReviewNotes,
		DispatchInfoJson: toJSON(e.DispatchInfo),
		CreatedAt:        e.CreatedAt,
	}
}

type SuggestionExecutionMapper struct{}

func NewSuggestionExecutionMapper() *SuggestionExecutionMapper {
	return &SuggestionExecutionMapper{}
}

func (m *SuggestionExecutionMapper) ToEntity(e *model.SuggestionExecution) *entity.SuggestionExecution {
	if e == nil {
		return nil
	}
	return &entity.SuggestionExecution{
		RunId:      e.RunId,
		CaseId:     e.CaseId,
		Suggestion: e.Suggestion,
		Operator:   e.Operator,
		Notes:      e.Notes,
		Dispatch:   fromJSON(e.DispatchJson),
		CreatedAt:  e.CreatedAt,
	}
}

func (m *SuggestionExecutionMapper) ToModel(e *entity.SuggestionExecution) *model.SuggestionExecution {
	if e == nil {
		return nil
	}
	return &model.SuggestionExecution{
		RunId:        e.RunId,
		CaseId:       e.CaseId,
		Suggestion:   e.Suggestion,
		Operator:     e.Operator,
		Notes:        e.Notes,
		DispatchJson: toJSON(e.Dispatch),
		CreatedAt:    e.CreatedAt,
	}
}
