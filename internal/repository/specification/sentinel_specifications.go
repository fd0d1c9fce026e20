package specification

import "gorm.io/gorm"

type ByCaseId struct {
	CaseId string
}

func (s ByCaseId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("case_id = ?", s.CaseId)
}

type ByRunId struct {
	RunId string
}

func (s ByRunId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("run_id = ?", s.RunId)
}

type ByEventType struct {
	EventType string
}

func (s ByEventType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("event_type = ?", s.EventType)
}

// ForCase scopes to a case and, when runId is set, to one run of it.
func ForCase(caseId, runId string) []Specification {
	specs := []Specification{ByCaseId{CaseId: caseId}}
	if runId != "" {
		specs = append(specs, ByRunId{RunId: runId})
	}
	return specs
}
