// Package router provides the decision functions used by routed flow steps.
// A router inspects the prior step's output and the flow state and selects
// the next agent from the candidate set; it never executes agents and never
// mutates state. Four variants ship with the package: Conditional, Content,
// Fallback and RoundRobin.
package router

import (
	"errors"

	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/state"
)

// ErrNoCandidate is returned when a router cannot select any agent and has
// no default configured. The orchestrator treats it as a step failure.
var ErrNoCandidate = errors.New("no candidate agent to route to")

// Router is the single capability all routing variants implement. Decide is
// pure with respect to state: implementations read it but must not mutate
// it.
type Router interface {
	Decide(input any, st *state.FlowState, available []string) (core.RouterDecision, error)
}

// contains reports whether name is present in the candidate set.
func contains(available []string, name string) bool {
	for _, a := range available {
		if a == name {
			return true
		}
	}
	return false
}
