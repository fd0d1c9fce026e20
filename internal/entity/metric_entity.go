package entity

import "time"

type CaseMetricInput struct {
	CaseDate          string
	OfficialAlertDate string
	PredictedPositive bool
	TrueOutbreak      bool
	PredSeverity      float64
	TrueSeverity      float64
	PredConfidencePct float64
}

type RunMetrics struct {
	RunId            string    `json:"run_id"`
	LeadTimeDays     float64   `json:"lead_time_days"`
	FalseAlarmRate   float64   `json:"false_alarm_rate"`
	SeverityMAE      float64   `json:"severity_mae"`
	CalibrationBrier float64   `json:"calibration_brier"`
	CreatedAt        time.Time `json:"created_at"`
}

func (m RunMetrics) Map() map[string]interface{} {
	return map[string]interface{}{
		"lead_time_days":    m.LeadTimeDays,
		"false_alarm_rate":  m.FalseAlarmRate,
		"severity_mae":      m.SeverityMAE,
		"calibration_brier": m.CalibrationBrier,
	}
}

type AuditEvent struct {
	RunId     *string
	CaseId    *string
	EventType string
	Actor     string
	Payload   map[string]interface{}
	CreatedAt time.Time
}

const (
	AuditRunStarted            = "run_started"
	AuditRunCompleted          = "run_completed"
	AuditRunFailed             = "run_failed"
	AuditCaseProcessingStarted = "case_processing_started"
	AuditRagContextBuilt       = "rag_context_built"
	AuditStrategyMemoryUpdated = "strategy_memory_updated"
	AuditApprovalUpdated       = "approval_updated"
	AuditSuggestionExecuted    = "suggestion_executed"
)
