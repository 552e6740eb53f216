package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentflow-go/agentflow/agent"
	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/state"
)

// Run executes the declared steps in index order and returns the terminal
// run record. The returned error is reserved for invocation misuse (a run
// already in progress, an empty step list); step and agent failures are
// reported inside the RunResult with Success=false and a populated Err,
// alongside whatever partial results, state and events accumulated.
//
// Each run owns a fresh FlowState seeded from initial and a fresh event
// log; the registry is frozen for the duration of the run.
func (f *Flow) Run(ctx context.Context, input any, initial map[string]any) (*RunResult, error) {
	f.mu.Lock()
	if f.status == core.StatusRunning {
		f.mu.Unlock()
		return nil, ErrRunInProgress
	}
	if len(f.steps) == 0 {
		f.mu.Unlock()
		return nil, ErrNoSteps
	}
	f.status = core.StatusRunning
	f.events = nil
	steps := append([]Step(nil), f.steps...)
	agents := make(map[string]*agent.Executor, len(f.agents))
	for name, exec := range f.agents {
		agents[name] = exec
	}
	available := append([]string(nil), f.agentOrder...)
	f.mu.Unlock()

	r := &run{
		flow:      f,
		id:        core.NewID(),
		st:        state.New(initial),
		results:   make(map[string]core.ExecutionResult),
		output:    input,
		start:     time.Now(),
		agents:    agents,
		available: available,
	}
	if f.cfg.Timeout > 0 {
		r.deadline = r.start.Add(f.cfg.Timeout)
	}
	r.setState("_input", input)

	result := r.execute(ctx, steps)

	f.mu.Lock()
	f.status = result.Status
	f.mu.Unlock()
	return result, nil
}

// run carries the per-invocation state of one Run call. It lives on the
// coordinating goroutine; parallel workers only communicate back through
// the result channel.
type run struct {
	flow      *Flow
	id        string
	st        *state.FlowState
	results   map[string]core.ExecutionResult
	output    any
	start     time.Time
	deadline  time.Time // zero when unbounded
	agents    map[string]*agent.Executor
	available []string
}

func (r *run) execute(ctx context.Context, steps []Step) *RunResult {
	runCtx := ctx
	if !r.deadline.IsZero() {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(ctx, r.deadline.Add(r.flow.cfg.GracePeriod))
		defer cancel()
	}

	for idx, step := range steps {
		if r.expired() {
			return r.finish(core.StatusTimedOut,
				fmt.Errorf("%w: %d of %d steps executed", ErrRunTimeout, idx, len(steps)))
		}

		var err error
		switch step.Kind {
		case core.StepParallel:
			err = r.runParallel(runCtx, step, idx)
		case core.StepRouted:
			err = r.runRouted(runCtx, step, idx)
		default:
			err = r.runSequential(runCtx, step.Agent, idx, nil)
		}
		if err != nil {
			if errors.Is(err, ErrRunTimeout) {
				return r.finish(core.StatusTimedOut, err)
			}
			return r.finish(core.StatusFailed, err)
		}
	}
	return r.finish(core.StatusCompleted, nil)
}

// runSequential executes one agent on the coordinating goroutine. Routed
// steps reuse it with the router's decision folded into the start event.
func (r *run) runSequential(ctx context.Context, agentName string, idx int, startData map[string]any) error {
	exec, ok := r.agents[agentName]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownAgent, agentName)
		r.emit(core.EventError, fmt.Sprintf("step_%d", idx), map[string]any{"error": err.Error()})
		return err
	}
	label := fmt.Sprintf("%s_%d", agentName, idx)

	data := map[string]any{"agent": agentName}
	for k, v := range startData {
		data[k] = v
	}
	r.emit(core.EventStepStart, label, data)

	res := exec.Execute(ctx, r.output, r.st, nil)
	r.results[label] = res
	r.writeStepRecord(label, res)

	if !res.Success {
		r.emit(core.EventError, label, map[string]any{"agent": agentName, "error": res.Err})
		return fmt.Errorf("step %s failed: %s", label, res.Err)
	}

	r.output = res.Output
	r.setState("_last_output", res.Output)
	r.st.Snapshot(label)
	r.emit(core.EventStepComplete, label, map[string]any{
		"agent":      agentName,
		"success":    true,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	})
	return nil
}

// runRouted asks the step's router for the next agent and executes it like
// a sequential step. A routing dead end is a step failure.
func (r *run) runRouted(ctx context.Context, step Step, idx int) error {
	decision, err := step.Router.Decide(r.output, r.st, r.available)
	if err != nil {
		label := fmt.Sprintf("routed_%d", idx)
		r.emit(core.EventError, label, map[string]any{"error": err.Error()})
		return fmt.Errorf("step %s: %w", label, err)
	}
	r.flow.logger.Info("router decision",
		"flow", r.flow.cfg.Name, "step", idx,
		"agent", decision.NextAgent, "confidence", decision.Confidence, "reason", decision.Reason)
	return r.runSequential(ctx, decision.NextAgent, idx, map[string]any{
		"routed":     true,
		"confidence": decision.Confidence,
		"reason":     decision.Reason,
	})
}

// indexedResult carries one parallel worker's outcome back to the
// coordinating goroutine; the coordinator alone touches the shared slices.
type indexedResult struct {
	index  int
	result core.ExecutionResult
}

// runParallel fans the group out onto a bounded worker pool, collects
// results until all workers finish or the run deadline (plus grace period)
// passes, then merges outputs into the state in declared agent order. One
// agent's failure does not abort its siblings and does not fail the run; it
// stays visible in the results and the event log.
func (r *run) runParallel(ctx context.Context, step Step, idx int) error {
	n := len(step.Agents)
	if n == 0 {
		return fmt.Errorf("parallel step %d has no agents", idx)
	}
	labels := make([]string, n)
	for i, name := range step.Agents {
		if _, ok := r.agents[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, name)
		}
		labels[i] = fmt.Sprintf("%s_parallel_%d", name, i)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resCh := make(chan indexedResult, n)
	group := &errgroup.Group{}
	limit := r.flow.cfg.MaxParallel
	if limit > n {
		limit = n
	}
	group.SetLimit(limit)

	input := r.output
	for i, name := range step.Agents {
		r.emit(core.EventStepStart, labels[i], map[string]any{"agent": name})
		exec := r.agents[name]
		i := i
		group.Go(func() error {
			wctx := workerCtx
			if step.AgentTimeout > 0 {
				var wcancel context.CancelFunc
				wctx, wcancel = context.WithTimeout(workerCtx, step.AgentTimeout)
				defer wcancel()
			}
			// Private logical view: reads see the pre-group state, writes
			// stay local. Results flow back through the merge only.
			view := r.st.Clone()
			resCh <- indexedResult{index: i, result: exec.Execute(wctx, input, view, nil)}
			return nil
		})
	}

	received := make([]*core.ExecutionResult, n)
	timedOut := r.collectParallel(resCh, received, cancel)

	branches := make([]state.Branch, 0, n)
	var lastOutput any
	haveOutput := false
	for i, name := range step.Agents {
		label := labels[i]
		var res core.ExecutionResult
		if received[i] != nil {
			res = *received[i]
		} else {
			res = core.ExecutionResult{
				AgentName: name,
				Success:   false,
				Err:       fmt.Sprintf("%s: worker abandoned after grace period", ErrStepTimeout),
				Timestamp: time.Now().UTC(),
			}
		}
		r.results[label] = res
		r.writeStepRecord(label, res)

		if res.Success {
			branches = append(branches, state.Branch{
				Name:   label,
				Values: map[string]any{label: res.Output},
			})
			lastOutput = res.Output
			haveOutput = true
			r.emit(core.EventStepComplete, label, map[string]any{
				"agent":      name,
				"success":    true,
				"elapsed_ms": res.Elapsed.Milliseconds(),
			})
		} else {
			r.emit(core.EventError, label, map[string]any{"agent": name, "error": res.Err})
		}
	}

	if err := r.st.Merge(branches); err != nil {
		r.emit(core.EventError, fmt.Sprintf("parallel_%d", idx), map[string]any{"error": err.Error()})
		return fmt.Errorf("parallel step %d merge: %w", idx, err)
	}
	if haveOutput {
		// Deterministic handoff: the last successful agent in declared
		// order provides the next step's input, matching merge precedence.
		r.output = lastOutput
		r.setState("_last_output", lastOutput)
	}

	if timedOut {
		return fmt.Errorf("%w: parallel step %d interrupted", ErrRunTimeout, idx)
	}
	r.st.Snapshot(fmt.Sprintf("parallel_%d", idx))
	return nil
}

// collectParallel drains worker results until the group completes or the
// run deadline passes. After expiry, in-flight workers get the configured
// grace period; whatever is still missing afterwards is abandoned and the
// worker context cancelled. Reports whether the deadline interrupted the
// group.
func (r *run) collectParallel(resCh <-chan indexedResult, received []*core.ExecutionResult, cancel context.CancelFunc) bool {
	remaining := len(received)

	var deadlineCh <-chan time.Time // nil (blocks forever) when unbounded
	if !r.deadline.IsZero() {
		timer := time.NewTimer(time.Until(r.deadline))
		defer timer.Stop()
		deadlineCh = timer.C
	}

	for remaining > 0 {
		select {
		case in := <-resCh:
			res := in.result
			received[in.index] = &res
			remaining--
		case <-deadlineCh:
			grace := time.NewTimer(r.flow.cfg.GracePeriod)
			defer grace.Stop()
			for remaining > 0 {
				select {
				case in := <-resCh:
					res := in.result
					received[in.index] = &res
					remaining--
				case <-grace.C:
					cancel()
					return true
				}
			}
			return true
		}
	}
	return false
}

// writeStepRecord mirrors the step outcome into the flow state under a
// step-derived key. Lock violations on these bookkeeping keys are logged
// and surfaced through the event log rather than failing the step.
func (r *run) writeStepRecord(label string, res core.ExecutionResult) {
	record := map[string]any{
		"success":    res.Success,
		"output":     res.Output,
		"error":      res.Err,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	}
	if err := r.st.Set("_step_"+label, record); err != nil {
		r.flow.logger.Warn("state write rejected",
			"flow", r.flow.cfg.Name, "key", "_step_"+label, "error", err)
	}
}

func (r *run) setState(key string, value any) {
	if err := r.st.Set(key, value); err != nil {
		r.flow.logger.Warn("state write rejected",
			"flow", r.flow.cfg.Name, "key", key, "error", err)
	}
}

func (r *run) expired() bool {
	return !r.deadline.IsZero() && time.Now().After(r.deadline)
}

func (r *run) emit(kind core.EventKind, stepName string, data map[string]any) {
	r.flow.emit(core.NewFlowEvent(kind, r.flow.cfg.Name, stepName, data))
}

// finish appends the terminal flow event and assembles the run record.
func (r *run) finish(status core.Status, cause error) *RunResult {
	elapsed := time.Since(r.start)

	if status == core.StatusCompleted {
		r.flow.emit(core.NewFlowEvent(core.EventFlowComplete, r.flow.cfg.Name, "", map[string]any{
			"total_steps": len(r.results),
		}))
	} else {
		r.flow.emit(core.NewFlowEvent(core.EventFlowError, r.flow.cfg.Name, "", map[string]any{
			"error":  cause.Error(),
			"status": status.String(),
		}))
	}

	result := &RunResult{
		RunID:   r.id,
		Success: status == core.StatusCompleted,
		Status:  status,
		Results: r.results,
		State:   r.st.Map(),
		Events:  r.flow.Events(),
		Elapsed: elapsed,
	}
	if cause != nil {
		result.Err = cause.Error()
	}

	r.flow.logger.Info("flow run finished",
		"flow", r.flow.cfg.Name, "run_id", r.id,
		"status", status, "steps", len(r.results), "elapsed", elapsed)
	return result
}
