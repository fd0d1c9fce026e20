package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the dotted event code (e.g. "run.progress").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic carrier used when an event comes back off a bus.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	RunStarted   = "run.started"
	RunProgress  = "run.progress"
	RunCompleted = "run.completed"
	RunFailed    = "run.failed"
)

// RunProgressEvent reports a run's lifecycle. CaseId is set on progress
// events; Metrics only on completion.
type RunProgressEvent struct {
	Type       string                 `json:"type"`
	RunId      string                 `json:"run_id"`
	Status     string                 `json:"status"`
	Processed  int                    `json:"processed"`
	Total      int                    `json:"total"`
	CaseId     string                 `json:"case_id,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	EndedAt    *time.Time             `json:"ended_at,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e RunProgressEvent) EventType() string {
	return e.Type
}

func (e RunProgressEvent) Payload() map[string]interface{} {
	data, _ := json.Marshal(e)
	out := map[string]interface{}{}
	_ = json.Unmarshal(data, &out)
	return out
}

func (e RunProgressEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Terminal reports whether the run has finished.
func (e RunProgressEvent) Terminal() bool {
	return e.Type == RunCompleted || e.Type == RunFailed
}

// Subject is the bus subject an event travels on, e.g. "sentinel.run.progress".
func Subject(prefix string, e Event) string {
	return prefix + "." + e.EventType()
}

// DecodeRunProgress parses a JSON-encoded RunProgressEvent.
func DecodeRunProgress(data []byte) (RunProgressEvent, error) {
	var e RunProgressEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return RunProgressEvent{}, fmt.Errorf("decode run event: %w", err)
	}
	if !strings.HasPrefix(e.Type, "run.") {
		return RunProgressEvent{}, fmt.Errorf("decode run event: unexpected type %q", e.Type)
	}
	return e, nil
}
