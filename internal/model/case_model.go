package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type Case struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CaseId          string    `gorm:"type:varchar(64);not null;index:idx_cases_case_run,priority:1"`
	RunId           string    `gorm:"type:varchar(64);not null;index:idx_cases_case_run,priority:2"`
	CaseDate        string    `gorm:"type:varchar(10);not null"`
	Country         string    `gorm:"type:varchar(100)"`
	City            string    `gorm:"type:varchar(100)"`
	Lat             float64
	Lon             float64
	PathogenLabel   *string         `gorm:"type:varchar(100)"`
	NormalizedJson  datatypes.JSON  `gorm:"type:jsonb"`
	GroundTruthJson datatypes.JSON  `gorm:"type:jsonb"`
	Embedding       pgvector.Vector `gorm:"type:vector"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index"`
}

func (Case) TableName() string {
	return "cases"
}
