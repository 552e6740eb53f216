// Package agent implements the execution unit wrapped around a single
// responder call: bounded retries with a fixed delay, synchronous tool
// dispatch and a private execution history. Executors never return an error
// from Execute; every failure mode is captured into the ExecutionResult so
// the orchestrator has exactly one result per step regardless of outcome.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/logging"
	"github.com/agentflow-go/agentflow/responder"
	"github.com/agentflow-go/agentflow/state"
)

// DelayFunc computes the wait before retrying after the given failed attempt
// (1-based). The default is a fixed delay per attempt; exponential backoff
// can be plugged in via WithRetryDelayFunc.
type DelayFunc func(attempt int) time.Duration

// Options configures optional executor collaborators.
type Options struct {
	Logger logging.Logger
	// RetryDelay overrides the fixed-delay policy derived from the config.
	RetryDelay DelayFunc
}

// WithLogger attaches a structured logger to the executor.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithRetryDelayFunc replaces the fixed retry delay with a custom policy,
// e.g. exponential backoff.
func WithRetryDelayFunc(fn DelayFunc) func(o *Options) {
	return func(o *Options) { o.RetryDelay = fn }
}

// Executor wraps one responder plus the agent's tools and retry policy.
// It is safe for concurrent use; the execution history is guarded
// internally.
type Executor struct {
	cfg     Config
	backend responder.Responder
	tools   []ToolDefinition
	logger  logging.Logger
	delay   DelayFunc

	historyMu sync.Mutex
	history   []core.ExecutionResult
}

// New constructs an executor for the given config and responder. A nil
// responder defaults to the in-memory mock so configuration-only tests do
// not need a backend.
func New(cfg Config, backend responder.Responder, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if backend == nil {
		backend = responder.NewMock()
	}
	delay := opts.RetryDelay
	if delay == nil {
		delay = func(int) time.Duration { return cfg.RetryDelay }
	}
	return &Executor{
		cfg:     cfg,
		backend: backend,
		logger:  opts.Logger,
		delay:   delay,
	}
}

// Name returns the agent's unique name.
func (e *Executor) Name() string { return e.cfg.Name }

// Role returns the agent's role description.
func (e *Executor) Role() string { return e.cfg.Role }

// Config returns a copy of the agent's configuration.
func (e *Executor) Config() Config { return e.cfg }

// AddTool registers a tool the agent can use. Tools must be added before the
// owning flow starts a run.
func (e *Executor) AddTool(tool ToolDefinition) { e.tools = append(e.tools, tool) }

// Tools returns the registered tool definitions.
func (e *Executor) Tools() []ToolDefinition {
	return append([]ToolDefinition(nil), e.tools...)
}

// Execute runs the agent on input with bounded retries. It never returns an
// error: responder failures, tool failures and panics are all captured into
// the returned ExecutionResult. Each attempt (success or failure) is
// appended to the private execution history.
//
// A responder error or tool failure consumes one attempt and, when budget
// remains, is followed by the retry delay. A responder panic is the fatal
// boundary: the execution stops immediately without further attempts. On
// the first success the result short-circuits back to the caller.
func (e *Executor) Execute(ctx context.Context, input any, st *state.FlowState, extra map[string]any) core.ExecutionResult {
	if st == nil {
		st = state.New(nil)
	}

	req := responder.Request{
		Instructions: e.cfg.Instructions,
		Input:        e.prepareMessage(input, st, extra),
		Temperature:  e.cfg.Temperature,
		MaxTokens:    e.cfg.MaxTokens,
		Tools:        e.toolSchemas(),
	}

	attempts := e.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last core.ExecutionResult
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		resp, err, fatal := e.safeCall(ctx, req)

		var output any
		if err == nil {
			output, err = e.processResponse(resp)
		}

		if err == nil {
			last = core.ExecutionResult{
				AgentName:  e.cfg.Name,
				Success:    true,
				Output:     output,
				TokensUsed: resp.Usage,
				Elapsed:    time.Since(start),
				Timestamp:  time.Now().UTC(),
			}
			e.appendHistory(last)
			e.logger.Info("agent execution succeeded",
				"agent", e.cfg.Name, "attempt", attempt, "elapsed", last.Elapsed)
			return last
		}

		last = core.ExecutionResult{
			AgentName: e.cfg.Name,
			Success:   false,
			Err:       err.Error(),
			Elapsed:   time.Since(start),
			Timestamp: time.Now().UTC(),
		}
		e.appendHistory(last)
		e.logger.Warn("agent attempt failed",
			"agent", e.cfg.Name, "attempt", attempt, "error", err)

		if fatal {
			return last
		}
		if attempt < attempts {
			if waitErr := e.wait(ctx, e.delay(attempt)); waitErr != nil {
				last.Err = fmt.Sprintf("%s (retry aborted: %s)", last.Err, waitErr)
				return last
			}
		}
	}
	return last
}

// safeCall invokes the responder, converting a panic into a fatal error.
// Ordinary failures come back as (nil, err, false) and are retried.
func (e *Executor) safeCall(ctx context.Context, req responder.Request) (resp *responder.Response, err error, fatal bool) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("responder panic: %v", r)
			fatal = true
		}
	}()
	resp, err = e.backend.Call(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: responder returned no response", responder.ErrFailure)
	}
	return resp, err, false
}

// processResponse dispatches any requested tool calls in order and folds
// their results into the textual output. An unknown tool name, a missing
// handler or a handler error fails the attempt.
func (e *Executor) processResponse(resp *responder.Response) (any, error) {
	output := resp.Text
	for _, call := range resp.ToolCalls {
		tool, ok := e.findTool(call.Name)
		if !ok {
			return nil, NewToolError(call.Name, "tool is not registered")
		}
		if tool.Handler == nil {
			return nil, NewToolError(call.Name, "tool has no handler")
		}
		start := time.Now()
		result, err := tool.Handler(call.Arguments)
		if err != nil {
			e.logger.Error("tool execution failed",
				"agent", e.cfg.Name, "tool", call.Name, "error", err)
			return nil, NewToolError(call.Name, err.Error())
		}
		e.logger.Debug("tool executed",
			"agent", e.cfg.Name, "tool", call.Name, "elapsed", time.Since(start))
		output += fmt.Sprintf("\n[%s result: %v]", call.Name, result)
	}
	return output, nil
}

func (e *Executor) findTool(name string) (ToolDefinition, bool) {
	for _, tool := range e.tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolDefinition{}, false
}

// toolSchemas projects the registered tools into the wire representation
// shared with the responder.
func (e *Executor) toolSchemas() []responder.ToolSchema {
	if len(e.tools) == 0 {
		return nil
	}
	schemas := make([]responder.ToolSchema, len(e.tools))
	for i, tool := range e.tools {
		schemas[i] = responder.ToolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		}
	}
	return schemas
}

// prepareMessage renders the input plus the visible state and extra context
// into the user message. State is rendered as canonical JSON so repeated
// executions against identical state produce identical prompts.
func (e *Executor) prepareMessage(input any, st *state.FlowState, extra map[string]any) string {
	message, ok := input.(string)
	if !ok {
		message = fmt.Sprintf("%v", input)
	}
	if st.Len() > 0 {
		message += "\n\nContext: " + renderMap(st.Map())
	}
	if len(extra) > 0 {
		message += "\n\nAdditional Context: " + renderMap(extra)
	}
	return message
}

func renderMap(m map[string]any) string {
	// json.Marshal sorts map keys, keeping prompts deterministic.
	if raw, err := json.Marshal(m); err == nil {
		return string(raw)
	}
	return fmt.Sprintf("%v", m)
}

// wait sleeps for the retry delay or returns early when ctx is done.
func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) appendHistory(result core.ExecutionResult) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	e.history = append(e.history, result)
}

// ExecutionHistory returns a copy of all recorded attempts in order.
func (e *Executor) ExecutionHistory() []core.ExecutionResult {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	return append([]core.ExecutionResult(nil), e.history...)
}

// ClearHistory empties the execution history without affecting future
// executions.
func (e *Executor) ClearHistory() {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	e.history = nil
}
