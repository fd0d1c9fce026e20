package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Run is append-only: every status change is a new row and the latest wins.
type Run struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId      string    `gorm:"type:varchar(64);not null;index"`
	Status     string    `gorm:"type:varchar(20);not null"`
	StartedAt  time.Time
	EndedAt    *time.Time
	NumCases   int
	Processed  int
	Error      *string        `gorm:"type:text"`
	ConfigJson datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index"`
}

func (Run) TableName() string {
	return "runs"
}

type Metric struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId            string    `gorm:"type:varchar(64);not null;index"`
	LeadTimeDays     float64
	FalseAlarmRate   float64
	SeverityMae      float64
	CalibrationBrier float64
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
}

func (Metric) TableName() string {
	return "metrics"
}
