package responder

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a lightweight in-memory Responder for tests and examples. It
// echoes its input with a configurable prefix, supports canned responses for
// exact inputs, scripted leading failures and scripted tool calls. Safe for
// concurrent use.
type Mock struct {
	mu        sync.Mutex
	prefix    string
	responses map[string]string
	toolCalls []ToolCall
	failTimes int
	calls     int
}

// NewMock constructs a Mock that answers "Processed by agent: <input>"
// unless a canned response matches.
func NewMock() *Mock {
	return &Mock{prefix: "Processed by agent", responses: make(map[string]string)}
}

// WithPrefix overrides the echo prefix used when no canned response matches.
func (m *Mock) WithPrefix(prefix string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefix = prefix
	return m
}

// AddResponse registers a deterministic canned completion for an exact input.
func (m *Mock) AddResponse(input, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = response
}

// FailTimes makes the next n calls fail with an ErrFailure-wrapped error
// before the mock starts succeeding again.
func (m *Mock) FailTimes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTimes = n
}

// ScriptToolCalls attaches tool calls to every subsequent successful
// response.
func (m *Mock) ScriptToolCalls(calls ...ToolCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls = calls
}

// Calls returns how many times Call has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Call implements Responder.
func (m *Mock) Call(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failTimes > 0 {
		m.failTimes--
		return nil, fmt.Errorf("%w: scripted failure (call %d)", ErrFailure, m.calls)
	}
	text, ok := m.responses[req.Input]
	if !ok {
		text = fmt.Sprintf("%s: %s", m.prefix, req.Input)
	}
	return &Response{
		Text:      text,
		Usage:     map[string]int{"input": 10, "output": 20},
		ToolCalls: append([]ToolCall(nil), m.toolCalls...),
	}, nil
}
