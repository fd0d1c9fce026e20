package entity

import "time"

type Decision struct {
	RunId                string
	CaseId               string
	FusedScore           float64
	Severity             float64
	Confidence           float64
	EligibleForApproval  bool
	Contributions        map[string]interface{}
	Rationale            string
	RecommendedThreshold float64
	Suggestion           string
	CreatedAt            time.Time
}

type ApprovalStatus string

const (
	ApprovalPending             ApprovalStatus = "pending"
	ApprovalNotRequired         ApprovalStatus = "not_required"
	ApprovalApproved            ApprovalStatus = "approved"
	ApprovalRejected            ApprovalStatus = "rejected"
	ApprovalRequestMoreEvidence ApprovalStatus = "request_more_evidence"
)

// ApprovalDecision is what a reviewer submits.
type ApprovalDecision string

const (
	DecisionApprove             ApprovalDecision = "approve"
	DecisionReject              ApprovalDecision = "reject"
	DecisionRequestMoreEvidence ApprovalDecision = "request_more_evidence"
)

func (d ApprovalDecision) Status() ApprovalStatus {
	switch d {
	case DecisionApprove:
		return ApprovalApproved
	case DecisionReject:
		return ApprovalRejected
	default:
		return ApprovalRequestMoreEvidence
	}
}

type ApprovalRecord struct {
	RunId        string
	CaseId       string
	Status       ApprovalStatus
	Reviewer     *string
	ReviewNotes  string
	DispatchInfo map[string]interface{}
	CreatedAt    time.Time
}

type SuggestionExecution struct {
	RunId      string
	CaseId     string
	Suggestion string
	Operator   string
	Notes      string
	Dispatch   map[string]interface{}
	CreatedAt  time.Time
}
