package mapper

import (
	"sentinel-be/internal/entity"
	"sentinel-be/internal/model"
)

type DecisionMapper struct{}

func NewDecisionMapper() *DecisionMapper {
	return &DecisionMapper{}
}

func (m *DecisionMapper) ToEntity(e *model.Decision) *entity.Decision {
	if e == nil {
		return nil
	}
	return &entity.Decision{
		RunId:                e.RunId,
		CaseId:               e.CaseId,
		FusedScore:           e.FusedScore,
		Severity:             e.Severity,
		Confidence:           e.Confidence,
		EligibleForApproval:  e.EligibleForApproval == 1,
		Contributions:        fromJSON(e.ContributionsJson),
		Rationale:            e.Rationale,
		RecommendedThreshold: e.RecommendedThreshold,
		Suggestion:           e.Suggestion,
		CreatedAt:            e.CreatedAt,
	}
}

func (m *DecisionMapper) ToModel(e *entity.Decision) *model.Decision {
	if e == nil {
		return nil
	}
	var eligible int8
	if e.EligibleForApproval {
		eligible = 1
	}
	return &model.Decision{
		RunId:                e.RunId,
		CaseId:               e.CaseId,
		FusedScore:           e.FusedScore,
		Severity:             e.Severity,
		Confidence:           e.Confidence,
		EligibleForApproval:  eligible,
		ContributionsJson:    toJSON(e.Contributions),
		Rationale:            e.Rationale,
		RecommendedThreshold: e.RecommendedThreshold,
		Suggestion:           e.Suggestion,
		CreatedAt:            e.CreatedAt,
	}
}
