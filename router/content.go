package router

import (
	"fmt"

	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/state"
)

// Classifier assigns a category label to the routed input.
type Classifier func(input any) (string, error)

// Content routes by classifying the input and looking the category up in a
// routing table. A classification error or unknown category falls back to
// the default agent.
type Content struct {
	classify     Classifier
	table        map[string]string
	defaultAgent string
}

// NewContent constructs a content router from a classifier and a
// category-to-agent table. defaultAgent may be empty, in which case inputs
// without a mapped category yield ErrNoCandidate.
func NewContent(classify Classifier, table map[string]string, defaultAgent string) *Content {
	copied := make(map[string]string, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return &Content{classify: classify, table: copied, defaultAgent: defaultAgent}
}

// Decide implements Router.
func (r *Content) Decide(input any, _ *state.FlowState, available []string) (core.RouterDecision, error) {
	if r.classify != nil {
		if category, err := r.classify(input); err == nil {
			if agent, ok := r.table[category]; ok && contains(available, agent) {
				return core.RouterDecision{
					NextAgent:  agent,
					Confidence: 0.85,
					Reason:     fmt.Sprintf("classified as %s", category),
					Metadata:   map[string]any{"category": category},
				}, nil
			}
		}
	}
	if r.defaultAgent != "" && contains(available, r.defaultAgent) {
		return core.RouterDecision{
			NextAgent:  r.defaultAgent,
			Confidence: 0.5,
			Reason:     "classification did not map to an agent, using default",
		}, nil
	}
	return core.RouterDecision{}, ErrNoCandidate
}
