// Package agentflow provides a high-level façade over the flow orchestrator
// and agent executors, enabling rapid construction of multi-agent pipelines.
// Most applications interact with this package by:
//  1. Creating an AgentFlow via New() (optionally supplying a logger and
//     flow configuration)
//  2. Registering agents against a responder backend (Anthropic, OpenAI, a
//     Func, or the Mock)
//  3. Declaring sequential, parallel and routed steps
//  4. Calling Run and inspecting the returned RunResult
//
// The façade delegates orchestration to flow.Flow while keeping setup
// ergonomics concise. Defaults are safe for local development: a no-op
// logger and the mock responder for agents registered without a backend.
package agentflow

import (
	"context"

	"github.com/agentflow-go/agentflow/agent"
	"github.com/agentflow-go/agentflow/flow"
	"github.com/agentflow-go/agentflow/logging"
	"github.com/agentflow-go/agentflow/responder"
	"github.com/agentflow-go/agentflow/router"
)

// Options configures the AgentFlow instance.
type Options struct {
	// Config is the flow configuration (timeout, worker pool size, grace
	// period). Defaults to flow.DefaultConfig(name).
	Config flow.Config
	// Logger defaults to the NoOp logger when nil.
	Logger logging.Logger
}

// AgentFlow is the high-level façade aggregating a flow and its agents.
type AgentFlow struct {
	opts Options
	flow *flow.Flow
}

// New creates an AgentFlow with optional overrides.
func New(name string, optFns ...func(o *Options)) *AgentFlow {
	opts := Options{
		Config: flow.DefaultConfig(name),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.Name == "" {
		opts.Config.Name = name
	}
	f := flow.New(opts.Config, flow.WithLogger(opts.Logger))
	return &AgentFlow{opts: opts, flow: f}
}

// Flow exposes the underlying orchestrator for advanced use.
func (a *AgentFlow) Flow() *flow.Flow { return a.flow }

// RegisterAgent builds an executor for cfg against backend (the mock when
// nil) and registers it with the flow. The executor is returned so callers
// can attach tools.
func (a *AgentFlow) RegisterAgent(cfg agent.Config, backend responder.Responder) (*agent.Executor, error) {
	exec := agent.New(cfg, backend, agent.WithLogger(a.opts.Logger))
	if err := a.flow.AddAgent(exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// AddStep declares a sequential step executing the named agent.
func (a *AgentFlow) AddStep(agentName string, optFns ...flow.StepOption) error {
	return a.flow.AddStep(agentName, optFns...)
}

// AddParallelStep declares a parallel step over the named agents.
func (a *AgentFlow) AddParallelStep(agentNames []string, optFns ...flow.StepOption) error {
	return a.flow.AddParallelStep(agentNames, optFns...)
}

// AddRoutedStep declares a step whose agent is chosen by r at run time.
func (a *AgentFlow) AddRoutedStep(r router.Router, optFns ...flow.StepOption) error {
	return a.flow.AddRoutedStep(r, optFns...)
}

// OnStepStart registers a lifecycle hook on the underlying flow.
func (a *AgentFlow) OnStepStart(h flow.Hook) { a.flow.OnStepStart(h) }

// OnStepComplete registers a lifecycle hook on the underlying flow.
func (a *AgentFlow) OnStepComplete(h flow.Hook) { a.flow.OnStepComplete(h) }

// OnError registers a lifecycle hook on the underlying flow.
func (a *AgentFlow) OnError(h flow.Hook) { a.flow.OnError(h) }

// Run executes the declared pipeline.
func (a *AgentFlow) Run(ctx context.Context, input any, initial map[string]any) (*flow.RunResult, error) {
	return a.flow.Run(ctx, input, initial)
}
