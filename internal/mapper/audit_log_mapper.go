package mapper

import (
	"sentinel-be/internal/entity"
	"sentinel-be/internal/model"
)

type AuditLogMapper struct{}

func NewAuditLogMapper() *AuditLogMapper {
	return &AuditLogMapper{}
}

func (m *AuditLogMapper) ToEntity(e *model.AuditLog) *entity.AuditEvent {
	if e == nil {
		return nil
	}
	return &entity.AuditEvent{
		RunId:     e.RunId,
		CaseId:    e.CaseId,
		EventType: e.EventType,
		Actor:     e.Actor,
		Payload:   fromJSON(e.PayloadJson),
		CreatedAt: e.CreatedAt,
	}
}

func (m *AuditLogMapper) ToModel(e *entity.AuditEvent) *model.AuditLog {
	if e == nil {
		return nil
	}
	return &model.AuditLog{
		RunId:       e.RunId,
		CaseId:      e.CaseId,
		EventType:   e.EventType,
		Actor:       e.Actor,
		PayloadJson: toJSON(e.Payload),
		CreatedAt:   e.CreatedAt,
	}
}
