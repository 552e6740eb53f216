package router

import (
	"fmt"

	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/state"
)

// Fallback holds a fixed priority-ordered agent list and always selects the
// first entry present in the candidate set. It models "try primary, then
// secondary" without invoking agents itself; execution stays with the
// orchestrator.
type Fallback struct {
	order []string
}

// NewFallback constructs a fallback router over the given priority order.
func NewFallback(order ...string) *Fallback {
	return &Fallback{order: append([]string(nil), order...)}
}

// Decide implements Router. Confidence decays by 0.1 per priority position.
func (r *Fallback) Decide(_ any, _ *state.FlowState, available []string) (core.RouterDecision, error) {
	for priority, agent := range r.order {
		if contains(available, agent) {
			confidence := 1.0 - float64(priority)*0.1
			if confidence < 0 {
				confidence = 0
			}
			return core.RouterDecision{
				NextAgent:  agent,
				Confidence: confidence,
				Reason:     fmt.Sprintf("fallback priority %d", priority),
				Metadata:   map[string]any{"priority": priority},
			}, nil
		}
	}
	return core.RouterDecision{}, ErrNoCandidate
}
