package dto

import "time"

// CaseRecord is the reviewer view of a case row, ground truth included.
type CaseRecord struct {
	CaseId        string                 `json:"case_id"`
	RunId         string                 `json:"run_id"`
	CaseDate      string                 `json:"case_date"`
	Country       string                 `json:"country"`
	City          string                 `json:"city"`
	Lat           float64                `json:"lat"`
	Lon           float64                `json:"lon"`
	PathogenLabel *string                `json:"pathogen_label"`
	Normalized    map[string]interface{} `json:"normalized"`
	GroundTruth   map[string]interface{} `json:"ground_truth"`
	CreatedAt     time.Time              `json:"created_at"`
}

type DecisionRecord struct {
	RunId             string                 `json:"run_id"`
	CaseId            string                 `json:"case_id"`
	FusedScore        float64                `json:"fused_score"`
	Severity          float64                `json:"severity"`
	Confidence        float64                `json:"confidence"`
	EligibleForReview bool                   `json:"eligible_for_review"`
	Rationale         string                 `json:"rationale"`
	Contributions     map[string]interface{} `json:"contributions"`
	Threshold         float64                `json:"threshold"`
	Suggestion        string                 `json:"suggestion"`
	CreatedAt         time.Time              `json:"created_at"`
}

type AgentOutputRecord struct {
	RunId      string                 `json:"run_id"`
	CaseId     string                 `json:"case_id"`
	AgentName  string                 `json:"agent_name"`
	Output     map[string]interface{} `json:"output"`
	Score      float64                `json:"score"`
	Confidence float64                `json:"confidence"`
	CreatedAt  time.Time              `json:"created_at"`
}

type ApprovalRecord struct {
	RunId        string                 `json:"run_id"`
	CaseId       string                 `json:"case_id"`
	Status       string                 `json:"status"`
	ReviewerName *string                `json:"reviewer_name"`
	Notes        string                 `json:"notes"`
	Dispatch     map[string]interface{} `json:"dispatch"`
	Timestamp    time.Time              `json:"timestamp"`
}

type AuditRecord struct {
	RunId     *string                `json:"run_id"`
	CaseId    *string                `json:"case_id"`
	EventType string                 `json:"event_type"`
	Actor     string                 `json:"actor"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

type CaseDetailResponse struct {
	Case              CaseRecord             `json:"case"`
	RagContextSources map[string]interface{} `json:"rag_context_sources"`
	AgentOutputs      []AgentOutputRecord    `json:"agent_outputs"`
	Decision          *DecisionRecord        `json:"decision"`
	Approvals         []ApprovalRecord       `json:"approvals"`
	AuditTrail        []AuditRecord          `json:"audit_trail"`
	Suggestion        string                 `json:"suggestion"`
}
