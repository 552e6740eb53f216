package flow

import (
	"time"

	"github.com/agentflow-go/agentflow/core"
)

// RunResult is the terminal record of one Run invocation. It is always
// fully populated: on Failed or TimedOut runs it carries the partial
// results, state and events accumulated up to that point.
type RunResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`
	// Success is true only for Completed runs.
	Success bool `json:"success"`
	// Status is the terminal state machine outcome.
	Status core.Status `json:"status"`
	// Results holds one ExecutionResult per executed step label
	// (<agent>_<index> for sequential and routed steps,
	// <agent>_parallel_<i> within parallel groups).
	Results map[string]core.ExecutionResult `json:"results"`
	// State is the final flow state as a plain serializable mapping.
	State map[string]any `json:"state"`
	// Events is the ordered lifecycle event log of the run.
	Events []core.FlowEvent `json:"events"`
	// Elapsed is the total wall-clock run time.
	Elapsed time.Duration `json:"elapsed"`
	// Err describes the failure for non-successful runs.
	Err string `json:"error,omitempty"`
}

// Output returns the output of the step with the given label, or nil when
// the step is absent or failed.
func (r *RunResult) Output(label string) any {
	res, ok := r.Results[label]
	if !ok || !res.Success {
		return nil
	}
	return res.Output
}
