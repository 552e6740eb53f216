package router

import (
	"fmt"
	"sync"

	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/state"
)

// RoundRobin cycles through a fixed agent list, wrapping around. The cursor
// is owned by the router instance and guarded by a mutex so concurrent
// Decide calls are serialized rather than racing on shared position.
type RoundRobin struct {
	order []string

	mu     sync.Mutex
	cursor int
}

// NewRoundRobin constructs a round-robin router over the given agent list.
func NewRoundRobin(order ...string) *RoundRobin {
	return &RoundRobin{order: append([]string(nil), order...)}
}

// Decide implements Router. The rotation skips agents absent from the
// candidate set; when the full list is available the selection sequence over
// [a, b, c] is a, b, c, a, ...
func (r *RoundRobin) Decide(_ any, _ *state.FlowState, available []string) (core.RouterDecision, error) {
	valid := make([]string, 0, len(r.order))
	for _, agent := range r.order {
		if contains(available, agent) {
			valid = append(valid, agent)
		}
	}
	if len(valid) == 0 {
		return core.RouterDecision{}, ErrNoCandidate
	}

	r.mu.Lock()
	index := r.cursor % len(valid)
	r.cursor++
	r.mu.Unlock()

	return core.RouterDecision{
		NextAgent:  valid[index],
		Confidence: 1.0,
		Reason:     fmt.Sprintf("round-robin selection (index %d)", index),
	}, nil
}
