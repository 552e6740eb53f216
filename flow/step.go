package flow

import (
	"time"

	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/router"
)

// Step describes one unit of pipeline work. Sequential steps name a single
// agent, parallel steps an ordered agent group, routed steps carry the
// router that selects the agent at run time.
type Step struct {
	// Kind selects the execution strategy.
	Kind core.StepKind
	// Agent is the agent name for sequential steps.
	Agent string
	// Agents is the ordered agent group for parallel steps. The order is
	// also the merge precedence.
	Agents []string
	// AgentTimeout optionally bounds each parallel worker individually, on
	// top of the run-level deadline.
	AgentTimeout time.Duration
	// Router makes the selection for routed steps.
	Router router.Router
	// DependsOn lists prerequisite step indices. Execution is currently
	// strictly linear, so the declaration is informational, but non-adjacent
	// dependencies stay representable for tooling and audits.
	DependsOn []int
	// Metadata is free-form and not interpreted by the orchestrator.
	Metadata map[string]any
}

// StepOption customizes a step at registration time.
type StepOption func(s *Step)

// WithDependsOn declares prerequisite step indices.
func WithDependsOn(indices ...int) StepOption {
	return func(s *Step) { s.DependsOn = append([]int(nil), indices...) }
}

// WithMetadata attaches free-form metadata to the step.
func WithMetadata(metadata map[string]any) StepOption {
	return func(s *Step) { s.Metadata = metadata }
}

// WithAgentTimeout bounds each worker of a parallel step individually.
func WithAgentTimeout(d time.Duration) StepOption {
	return func(s *Step) { s.AgentTimeout = d }
}
