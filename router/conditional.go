package router

import (
	"fmt"

	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/state"
)

// Predicate evaluates whether its agent should handle the input. A predicate
// that panics is treated as not matching.
type Predicate func(input any, st *state.FlowState) bool

// Condition binds an agent name to the predicate that selects it.
// Conditions are evaluated in declaration order; the first match wins.
type Condition struct {
	Agent string
	When  Predicate
}

// Conditional routes to the first agent whose predicate matches, falling
// back to a configured default when none do.
type Conditional struct {
	conditions   []Condition
	defaultAgent string
}

// NewConditional constructs a conditional router. defaultAgent may be empty,
// in which case an unmatched input yields ErrNoCandidate.
func NewConditional(conditions []Condition, defaultAgent string) *Conditional {
	return &Conditional{
		conditions:   append([]Condition(nil), conditions...),
		defaultAgent: defaultAgent,
	}
}

// Decide implements Router. Predicates are evaluated in declaration order
// against agents present in the candidate set.
func (r *Conditional) Decide(input any, st *state.FlowState, available []string) (core.RouterDecision, error) {
	for _, cond := range r.conditions {
		if !contains(available, cond.Agent) {
			continue
		}
		if evalPredicate(cond.When, input, st) {
			return core.RouterDecision{
				NextAgent:  cond.Agent,
				Confidence: 1.0,
				Reason:     fmt.Sprintf("condition matched for %s", cond.Agent),
			}, nil
		}
	}
	if r.defaultAgent != "" && contains(available, r.defaultAgent) {
		return core.RouterDecision{
			NextAgent:  r.defaultAgent,
			Confidence: 0.5,
			Reason:     "no condition matched, using default agent",
		}, nil
	}
	return core.RouterDecision{}, ErrNoCandidate
}

// evalPredicate guards against panicking predicates; a panic counts as no
// match rather than aborting the run.
func evalPredicate(p Predicate, input any, st *state.FlowState) (matched bool) {
	if p == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return p(input, st)
}
