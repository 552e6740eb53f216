// Package flow implements the orchestrator that composes agent executors
// into pipelines with sequential, parallel and routed steps. A Flow owns the
// step list, the agent registry, the event log and the run state machine;
// the heavy lifting of a single execution unit stays with agent.Executor and
// branch selection with router.Router.
package flow

import (
	"fmt"
	"sync"

	"github.com/agentflow-go/agentflow/agent"
	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/logging"
	"github.com/agentflow-go/agentflow/router"
)

// Hook observes one lifecycle event. Hooks run synchronously on the
// coordinating goroutine in registration order; a panicking hook is
// recovered and logged, never propagated into the run.
type Hook func(core.FlowEvent)

// Options configures optional flow collaborators.
type Options struct {
	Logger logging.Logger
}

// WithLogger attaches a structured logger to the flow.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Flow orchestrates a declared pipeline of steps over registered agents.
// The registry (agents, steps, routers, hooks) is mutable while the flow is
// not running and frozen for the duration of each run. Flows are reusable:
// after a run reaches a terminal state the registry reopens and Run may be
// called again with fresh state.
type Flow struct {
	cfg    Config
	logger logging.Logger

	mu         sync.Mutex
	agents     map[string]*agent.Executor
	agentOrder []string
	steps      []Step
	events     []core.FlowEvent
	status     core.Status

	onStepStart    []Hook
	onStepComplete []Hook
	onError        []Hook
}

// New constructs a flow with the given configuration.
func New(cfg Config, optFns ...func(o *Options)) *Flow {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Flow{
		cfg:    cfg.withDefaults(),
		logger: opts.Logger,
		agents: make(map[string]*agent.Executor),
		status: core.StatusIdle,
	}
}

// Name returns the flow name.
func (f *Flow) Name() string { return f.cfg.Name }

// Status returns the state machine position: Idle before the first run,
// Running during one, and the terminal outcome of the most recent run
// afterwards.
func (f *Flow) Status() core.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// AddAgent registers an executor under its configured name. Re-registering
// a name replaces the previous executor.
func (f *Flow) AddAgent(exec *agent.Executor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == core.StatusRunning {
		return ErrRunInProgress
	}
	name := exec.Name()
	if _, exists := f.agents[name]; !exists {
		f.agentOrder = append(f.agentOrder, name)
	}
	f.agents[name] = exec
	f.logger.Info("agent registered", "flow", f.cfg.Name, "agent", name)
	return nil
}

// AgentNames returns the registered agent names in registration order. This
// is the candidate set handed to routers.
func (f *Flow) AgentNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.agentOrder...)
}

// AddStep appends a sequential step executing the named agent.
func (f *Flow) AddStep(agentName string, optFns ...StepOption) error {
	step := Step{Kind: core.StepSequential, Agent: agentName}
	for _, fn := range optFns {
		fn(&step)
	}
	return f.appendStep(step, agentName)
}

// AddParallelStep appends a parallel step fanning the named agents out onto
// the worker pool. The declared order is the merge precedence.
func (f *Flow) AddParallelStep(agentNames []string, optFns ...StepOption) error {
	step := Step{Kind: core.StepParallel, Agents: append([]string(nil), agentNames...)}
	for _, fn := range optFns {
		fn(&step)
	}
	return f.appendStep(step, agentNames...)
}

// AddRoutedStep appends a step whose agent is selected by r at run time
// from the full registered candidate set.
func (f *Flow) AddRoutedStep(r router.Router, optFns ...StepOption) error {
	if r == nil {
		return fmt.Errorf("routed step requires a router")
	}
	step := Step{Kind: core.StepRouted, Router: r}
	for _, fn := range optFns {
		fn(&step)
	}
	return f.appendStep(step)
}

// appendStep validates the referenced agents and appends the step under the
// registry lock.
func (f *Flow) appendStep(step Step, agentNames ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == core.StatusRunning {
		return ErrRunInProgress
	}
	for _, name := range agentNames {
		if _, ok := f.agents[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, name)
		}
	}
	f.steps = append(f.steps, step)
	f.logger.Info("step added", "flow", f.cfg.Name, "kind", step.Kind, "index", len(f.steps)-1)
	return nil
}

// Steps returns a copy of the declared step list.
func (f *Flow) Steps() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Step(nil), f.steps...)
}

// OnStepStart registers a hook invoked before each agent execution.
func (f *Flow) OnStepStart(h Hook) { f.addHook(&f.onStepStart, h) }

// OnStepComplete registers a hook invoked after each successful execution.
func (f *Flow) OnStepComplete(h Hook) { f.addHook(&f.onStepComplete, h) }

// OnError registers a hook invoked for step and run level errors.
func (f *Flow) OnError(h Hook) { f.addHook(&f.onError, h) }

func (f *Flow) addHook(list *[]Hook, h Hook) {
	if h == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	*list = append(*list, h)
}

// Events returns a copy of the event log of the current or most recent run.
func (f *Flow) Events() []core.FlowEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.FlowEvent(nil), f.events...)
}

// ClearEvents empties the event log.
func (f *Flow) ClearEvents() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// emit appends the event to the run log and invokes the matching hook list
// synchronously, in registration order, on the calling goroutine.
func (f *Flow) emit(ev core.FlowEvent) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	var hooks []Hook
	switch ev.Kind {
	case core.EventStepStart:
		hooks = append(hooks, f.onStepStart...)
	case core.EventStepComplete:
		hooks = append(hooks, f.onStepComplete...)
	case core.EventError, core.EventFlowError:
		hooks = append(hooks, f.onError...)
	}
	f.mu.Unlock()

	for _, h := range hooks {
		f.invokeHook(h, ev)
	}
}

// invokeHook shields the run from hook panics.
func (f *Flow) invokeHook(h Hook, ev core.FlowEvent) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("event hook panicked",
				"flow", f.cfg.Name, "event", ev.Kind, "panic", r)
		}
	}()
	h(ev)
}
