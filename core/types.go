package core

import (
	"fmt"
	"time"
)

// StepKind categorizes how a flow step is executed.
type StepKind string

const (
	// StepSequential executes a single agent on the coordinating goroutine.
	StepSequential StepKind = "sequential"
	// StepParallel fans a group of agents out onto the worker pool.
	StepParallel StepKind = "parallel"
	// StepRouted delegates agent selection to a router before executing the
	// chosen agent like a sequential step.
	StepRouted StepKind = "routed"
)

// Status describes the lifecycle of a flow run.
type Status string

const (
	// StatusIdle is the state before Run has been called; the registry is
	// still mutable.
	StatusIdle Status = "idle"
	// StatusRunning indicates a run is in progress.
	StatusRunning Status = "running"
	// StatusCompleted indicates all declared steps finished.
	StatusCompleted Status = "completed"
	// StatusFailed indicates an unrecovered step error ended the run.
	StatusFailed Status = "failed"
	// StatusTimedOut indicates the run deadline passed with steps remaining.
	StatusTimedOut Status = "timed_out"
)

// String returns the status identifier.
func (s Status) String() string { return string(s) }

// Terminal reports whether the status is an end state of a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// ExecutionResult is the immutable outcome of one agent execution (the full
// retry sequence, not a single attempt when returned from Execute; executors
// also record one result per attempt in their private history).
type ExecutionResult struct {
	AgentName  string         `json:"agent_name"`
	Success    bool           `json:"success"`
	Output     any            `json:"output,omitempty"`
	Err        string         `json:"error,omitempty"`
	TokensUsed map[string]int `json:"tokens_used,omitempty"`
	Elapsed    time.Duration  `json:"elapsed"`
	Timestamp  time.Time      `json:"timestamp"`
}

// String renders the result for logs and debugging.
func (r ExecutionResult) String() string {
	if r.Success {
		return fmt.Sprintf("ExecutionResult(%s): %v", r.AgentName, r.Output)
	}
	return fmt.Sprintf("ExecutionResult(%s) ERROR: %s", r.AgentName, r.Err)
}

// RouterDecision is produced by a router for one routed step. It is folded
// into the step's start event and not retained beyond the event log.
type RouterDecision struct {
	NextAgent  string         `json:"next_agent"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
