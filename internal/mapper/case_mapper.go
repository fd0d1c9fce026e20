package mapper

import (
	"sentinel-be/internal/entity"
	"sentinel-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type CaseMapper struct{}

func NewCaseMapper() *CaseMapper {
	return &CaseMapper{}
}

func (m *CaseMapper) ToEntity(e *model.Case) *entity.CaseRecord {
	if e == nil {
		return nil
	}
	return &entity.CaseRecord{
		CaseId:        e.CaseId,
		RunId:         e.RunId,
		CaseDate:      e.CaseDate,
		Country:       e.Country,
		City:          e.City,
		Lat:           e.Lat,
		Lon:           e.Lon,
		PathogenLabel: e.PathogenLabel,
		Normalized:    fromJSON(e.NormalizedJson),
		GroundTruth:   fromJSON(e.GroundTruthJson),
		Embedding:     e.Embedding.Slice(),
		CreatedAt:     e.CreatedAt,
	}
}

func (m *CaseMapper) ToModel(e *entity.CaseRecord) *model.Case {
	if e == nil {
		return nil
	}
	return &model.Case{
		CaseId:          e.CaseId,
		RunId:           e.RunId,
		CaseDate:        e.CaseDate,
		Country:         e.Country,
		City:            e.City,
		Lat:             e.Lat,
		Lon:             e.Lon,
		PathogenLabel:   e.PathogenLabel,
		NormalizedJson:  toJSON(e.Normalized),
		GroundTruthJson: toJSON(e.GroundTruth),
		Embedding:       pgvector.NewVector(e.Embedding),
		CreatedAt:       e.CreatedAt,
	}
}
