package entity

import (
	"errors"
	"fmt"
	"time"
)

type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

var ErrInvalidTransition = errors.New("invalid run state transition")

var allowedTransitions = map[RunState][]RunState{
	RunRunning: {RunCompleted, RunFailed},
}

func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

type RunStatus struct {
	RunId     string     `json:"run_id"`
	Status    RunState   `json:"status"`
	Processed int        `json:"processed"`
	Total     int        `json:"total"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Error     *string    `json:"error"`
}

func NewRunStatus(runId string, total int, now time.Time) *RunStatus {
	return &RunStatus{
		RunId:     runId,
		Status:    RunRunning,
		Total:     total,
		StartedAt: now,
	}
}

// Transition moves the run into a terminal state and stamps EndedAt.
func (r *RunStatus) Transition(next RunState, now time.Time, cause error) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.EndedAt = &now
	if cause != nil {
		msg := cause.Error()
		r.Error = &msg
	}
	return nil
}

// Snapshot returns a copy safe to hand out while the run keeps mutating.
func (r *RunStatus) Snapshot() RunStatus {
	out := *r
	if r.EndedAt != nil {
		t := *r.EndedAt
		out.EndedAt = &t
	}
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}
	return out
}

// RunEvent is one appended row of the runs table.
type RunEvent struct {
	RunId     string
	Status    RunState
	StartedAt time.Time
	EndedAt   *time.Time
	NumCases  int
	Processed int
	Error     *string
	Config    map[string]interface{}
	CreatedAt time.Time
}

func (r *RunStatus) Event(config map[string]interface{}) *RunEvent {
	s := r.Snapshot()
	if config == nil {
		config = map[string]interface{}{}
	}
	return &RunEvent{
		RunId:     s.RunId,
		Status:    s.Status,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		NumCases:  s.Total,
		Processed: s.Processed,
		Error:     s.Error,
		Config:    config,
	}
}

func (e *RunEvent) ToStatus() *RunStatus {
	return &RunStatus{
		RunId:     e.RunId,
		Status:    e.Status,
		Processed: e.Processed,
		Total:     e.NumCases,
		StartedAt: e.StartedAt,
		EndedAt:   e.EndedAt,
		Error:     e.Error,
	}
}
