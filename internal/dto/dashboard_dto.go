package dto

type CaseSummary struct {
	CaseId            string  `json:"case_id"`
	RunId             string  `json:"run_id"`
	Country           string  `json:"country"`
	City              string  `json:"city"`
	Date              string  `json:"date"`
	Status            string  `json:"status"`
	Severity          float64 `json:"severity"`
	Confidence        float64 `json:"confidence"`
	EligibleForReview bool    `json:"eligible_for_review"`
	Suggestion        string  `json:"suggestion"`
}

type PendingApproval struct {
	CaseId     string  `json:"case_id"`
	RunId      string  `json:"run_id"`
	Severity   float64 `json:"severity"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
	Suggestion string  `json:"suggestion"`
}

type CaseDetailSummary struct {
	CaseId            string  `json:"case_id"`
	RunId             string  `json:"run_id"`
	Severity          float64 `json:"severity"`
	Confidence        float64 `json:"confidence"`
	EligibleForReview bool    `json:"eligible_for_review"`
	Status            string  `json:"status"`
	Suggestion        string  `json:"suggestion"`
}

type DashboardResponse struct {
	RecentCases           []CaseSummary          `json:"recent_cases"`
	CurrentRunMetrics     map[string]interface{} `json:"current_run_metrics"`
	PendingApprovalsQueue []PendingApproval      `json:"pending_approvals_queue"`
	CaseDetailsSummary    []CaseDetailSummary    `json:"case_details_summary"`
}
