package mapper

import (
	"encoding/json"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type StrategyMemoryMapper struct{}

func NewStrategyMemoryMapper() *StrategyMemoryMapper {
	return &StrategyMemoryMapper{}
}

func (m *StrategyMemoryMapper) ToEntity(e *model.StrategyMemory) *entity.StrategyMemory {
	if e == nil {
		return nil
	}
	prompts := map[string]string{}
	_ = json.Unmarshal(e.UpdatedPromptsJson, &prompts)
	weights := map[string]float64{}
	if err := json.Unmarshal(e.WeightsJson, &weights); err != nil {
		// Left empty so readers fall back to the default fusion state
		weights = map[string]float64{}
	}
	return &entity.StrategyMemory{
		RunId:          e.RunId,
		CaseId:         e.CaseId,
		StrategyNotes:  e.StrategyNotes,
		UpdatedPrompts: prompts,
		Weights:        weights,
		Threshold:      e.Threshold,
		Embedding:      e.Embedding.Slice(),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *StrategyMemoryMapper) ToModel(e *entity.StrategyMemory) *model.StrategyMemory {
	if e == nil {
		return nil
	}
	return &model.StrategyMemory{
		RunId:              e.RunId,
		CaseId:             e.CaseId,
		StrategyNotes:      e.StrategyNotes,
		UpdatedPromptsJson: toJSON(e.UpdatedPrompts),
		WeightsJson:        toJSON(e.Weights),
		Threshold:          e.Threshold,
		Embedding:          pgvector.NewVector(e.Embedding),
		CreatedAt:          e.CreatedAt,
	}
}
