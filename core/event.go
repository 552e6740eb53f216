package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the lifecycle point a FlowEvent was emitted at.
type EventKind string

const (
	// EventStepStart is emitted before an agent execution begins (one per
	// agent for parallel groups).
	EventStepStart EventKind = "step_start"
	// EventStepComplete is emitted after an agent execution succeeds.
	EventStepComplete EventKind = "step_complete"
	// EventError is emitted for step failures, routing dead ends, timeouts
	// and run-level errors.
	EventError EventKind = "error"
	// EventFlowComplete is appended once when a run reaches a successful
	// terminal state.
	EventFlowComplete EventKind = "flow_complete"
	// EventFlowError is appended once when a run ends in Failed or TimedOut.
	EventFlowError EventKind = "flow_error"
)

// FlowEvent records one lifecycle occurrence during a run. Events are
// append-only and owned by the orchestrator for the lifetime of a run; after
// emission they should be treated as immutable.
type FlowEvent struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	FlowName  string         `json:"flow_name"`
	StepName  string         `json:"step_name,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewFlowEvent creates an event stamped with a fresh ID and UTC timestamp.
func NewFlowEvent(kind EventKind, flowName, stepName string, data map[string]any) FlowEvent {
	if data == nil {
		data = map[string]any{}
	}
	return FlowEvent{
		ID:        NewID(),
		Kind:      kind,
		FlowName:  flowName,
		StepName:  stepName,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewID generates a unique identifier for events and runs.
func NewID() string { return uuid.NewString() }
