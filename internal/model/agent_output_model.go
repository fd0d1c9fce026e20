package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AgentOutput struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId      string    `gorm:"type:varchar(64);not null;index:idx_agent_outputs_case_run,priority:2"`
	CaseId     string    `gorm:"type:varchar(64);not null;index:idx_agent_outputs_case_run,priority:1"`
	AgentName  string    `gorm:"type:varchar(20);not null"`
	Score      float64
	Confidence float64
	OutputJson datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index"`
}

func (AgentOutput) TableName() string {
	return "agent_outputs"
}
