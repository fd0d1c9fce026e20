package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type StrategyMemory struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId              string         `gorm:"type:varchar(64);not null;index"`
	CaseId             string         `gorm:"type:varchar(64);not null"`
	StrategyNotes      string         `gorm:"type:text"`
	UpdatedPromptsJson datatypes.JSON `gorm:"type:jsonb"`
	WeightsJson        datatypes.JSON `gorm:"type:jsonb"`
	Threshold          float64
	Embedding          pgvector.Vector `gorm:"type:vector"`
	CreatedAt          time.Time       `gorm:"autoCreateTime;index"`
}

func (StrategyMemory) TableName() string {
	return "strategy_memory"
}
