package mapper

import (
	"sentinel-be/internal/entity"
	"sentinel-be/internal/model"
)

type RunMapper struct{}

func NewRunMapper() *RunMapper {
	return &RunMapper{}
}

func (m *RunMapper) ToEntity(e *model.Run) *entity.RunEvent {
	if e == nil {
		return nil
	}
	return &entity.RunEvent{
		RunId:     e.RunId,
		Status:    entity.RunState(e.Status),
		StartedAt: e.StartedAt,
		EndedAt:   e.EndedAt,
		NumCases:  e.NumCases,
		Processed: e.Processed,
		Error:     e.Error,
		Config:    fromJSON(e.ConfigJson),
		CreatedAt: e.CreatedAt,
	}
}

func (m *RunMapper) ToModel(e *entity.RunEvent) *model.Run {
	if e == nil {
		return nil
	}
	return &model.Run{
		RunId:      e.RunId,
		Status:     string(e.Status),
		StartedAt:  e.StartedAt,
		EndedAt:    e.EndedAt,
		NumCases:   e.NumCases,
		Processed:  e.Processed,
		Error:      e.Error,
		ConfigJson: toJSON(e.Config),
		CreatedAt:  e.CreatedAt,
	}
}

type MetricMapper struct{}

func NewMetricMapper() *MetricMapper {
	return &MetricMapper{}
}

func (m *MetricMapper) ToEntity(e *model.Metric) *entity.RunMetrics {
	if e == nil {
		return nil
	}
	return &entity.RunMetrics{
		RunId:            e.RunId,
		LeadTimeDays:     e.LeadTimeDays,
		FalseAlarmRate:   e.FalseAlarmRate,
		SeverityMAE:      e.SeverityMae,
		CalibrationBrier: e.CalibrationBrier,
		CreatedAt:        e.CreatedAt,
	}
}

func (m *MetricMapper) ToModel(e *entity.RunMetrics) *model.Metric {
	if e == nil {
		return nil
	}
	return &model.Metric{
		RunId:            e.RunId,
		LeadTimeDays:     e.LeadTimeDays,
		FalseAlarmRate:   e.FalseAlarmRate,
		SeverityMae:      e.SeverityMAE,
		CalibrationBrier: e.CalibrationBrier,
		CreatedAt:        e.CreatedAt,
	}
}
