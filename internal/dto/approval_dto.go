package dto

type ApprovalRequest struct {
	Decision     string `json:"decision" validate:"required,oneof=approve reject request_more_evidence"`
	RunId        string `json:"run_id"`
	ReviewerName string `json:"reviewer_name" validate:"max=120"`
	Notes        string `json:"notes" validate:"max=2000"`
}

type ApprovalResponse struct {
	CaseId   string                 `json:"case_id"`
	Status   string                 `json:"status"`
	Dispatch map[string]interface{} `json:"dispatch"`
}

type SuggestionExecuteRequest struct {
	RunId        string `json:"run_id"`
	OperatorName string `json:"operator_name" validate:"max=120"`
	Notes        string `json:"notes" validate:"max=2000"`
}

type SuggestionExecuteResponse struct {
	CaseId     string                 `json:"case_id"`
	Suggestion string                 `json:"suggestion"`
	Executed   bool                   `json:"executed"`
	Dispatch   map[string]interface{} `json:"dispatch"`
}
