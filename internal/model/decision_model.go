package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Decision struct {
	Id                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId                string    `gorm:"type:varchar(64);not null;index:idx_decisions_case_run,priority:2"`
	CaseId               string    `gorm:"type:varchar(64);not null;index:idx_decisions_case_run,priority:1"`
	FusedScore           float64
	Severity             float64
	Confidence           float64
	EligibleForApproval  int8           `gorm:"type:smallint;not null;default:0"`
	ContributionsJson    datatypes.JSON `gorm:"type:jsonb"`
	Rationale            string         `gorm:"type:text"`
	RecommendedThreshold float64
	Suggestion           string    `gorm:"type:text"`
	CreatedAt            time.Time `gorm:"autoCreateTime;index"`
}

func (Decision) TableName() string {
	return "decisions"
}
