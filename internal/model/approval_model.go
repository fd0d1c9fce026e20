package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Approval struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId            string         `gorm:"type:varchar(64);not null;index:idx_approvals_case_run,priority:2"`
	CaseId           string         `gorm:"type:varchar(64);not null;index:idx_approvals_case_run,priority:1"`
	Status           string         `gorm:"type:varchar(30);not null;index"`
	Reviewer         *string        `gorm:"type:varchar(100)"`
	ReviewNotes      string         `gorm:"type:text"`
	DispatchInfoJson datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime;index"`
}

func (Approval) TableName() string {
	return "approvals"
}

type SuggestionExecution struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunId        string         `gorm:"type:varchar(64);not null;index:idx_suggestion_exec_case_run,priority:2"`
	CaseId       string         `gorm:"type:varchar(64);not null;index:idx_suggestion_exec_case_run,priority:1"`
	Suggestion   string         `gorm:"type:text"`
	Operator     string         `gorm:"type:varchar(100)"`
	Notes        string         `gorm:"type:text"`
	DispatchJson datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index"`
}

func (SuggestionExecution) TableName() string {
	return "suggestion_executions"
}
