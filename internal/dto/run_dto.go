package dto

import "time"

type StartRunRequest struct {
	NumCases int `json:"num_cases" validate:"omitempty,min=1,max=500"`
}

type StartRunResponse struct {
	RunId  string `json:"run_id"`
	Status string `json:"status"`
}

type RunStatusResponse struct {
	RunId     string     `json:"run_id"`
	Status    string     `json:"status"`
	Processed int        `json:"processed"`
	Total     int        `json:"total"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Error     *string    `json:"error"`
}
