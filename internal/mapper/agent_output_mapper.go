package mapper

import (
	"sentinel-be/internal/entity"
	"sentinel-be/internal/model"
)

type AgentOutputMapper struct{}

func NewAgentOutputMapper() *AgentOutputMapper {
	return &AgentOutputMapper{}
}

func (m *AgentOutputMapper) ToEntity(e *model.AgentOutput) *entity.AgentOutputRecord {
	if e == nil {
		return nil
	}
	return &entity.AgentOutputRecord{
		RunId:      e.RunId,
		CaseId:     e.CaseId,
		AgentName:  e.AgentName,
		Score:      e.Score,
		Confidence: e.Confidence,
		Output:     fromJSON(e.OutputJson),
		CreatedAt:  e.CreatedAt,
	}
}

func (m *AgentOutputMapper) ToModel(e *entity.AgentOutputRecord) *model.AgentOutput {
	if e == nil {
		return nil
	}
	return &model.AgentOutput{
		RunId:      e.RunId,
		CaseId:     e.CaseId,
		AgentName:  e.AgentName,
		Score:      e.Score,
		Confidence: e.Confidence,
		OutputJson: toJSON(e.Output),
		CreatedAt:  e.CreatedAt,
	}
}
