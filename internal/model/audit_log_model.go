package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId       *string        `gorm:"type:varchar(64);index:idx_audit_logs_case_run,priority:2"`
	CaseId      *string        `gorm:"type:varchar(64);index:idx_audit_logs_case_run,priority:1"`
	EventType   string         `gorm:"type:varchar(50);not null;index"`
	Actor       string         `gorm:"type:varchar(100);not null"`
	PayloadJson datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Case{},
		&AgentOutput{},
		&Decision{},
		&Approval{},
		&SuggestionExecution{},
		&Run{},
		&Metric{},
		&StrategyMemory{},
		&AuditLog{},
	}
}
