// Package responder defines the boundary to the pluggable backend an agent
// calls to produce output. The core never depends on a concrete provider:
// agent executors drive any implementation of the Responder interface.
// Production adapters for Anthropic and OpenAI live in subpackages; Mock and
// Func cover tests and deterministic pipelines.
package responder

import (
	"context"
	"errors"
)

// ErrFailure is the base classification for ordinary responder failures.
// Implementations should wrap it (or return any plain error) rather than
// panic: a returned error is retried by the executor up to its budget,
// while a panic is treated as fatal for the whole execution.
var ErrFailure = errors.New("responder failure")

// ToolSchema declaratively exposes a callable tool to the backend. The
// parameter schema is opaque to the core and passed through untouched.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures one normalized backend call.
type Request struct {
	// Instructions is the agent's static system prompt.
	Instructions string `json:"instructions"`
	// Input is the prepared user message, including folded-in state context.
	Input string `json:"input"`
	// Temperature and MaxTokens are the agent's generation parameters.
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// Tools lists the schemas of the agent's registered tools, if any.
	Tools []ToolSchema `json:"tools,omitempty"`
}

// ToolCall is a tool invocation requested by the backend. Calls are
// dispatched synchronously by the executor in the order returned.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Response is the backend's answer to a single Request.
type Response struct {
	Text      string         `json:"text"`
	Usage     map[string]int `json:"usage,omitempty"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
}

// Responder is the minimal capability an agent needs from a backend.
//
// Implementations must signal ordinary failures through the returned error
// so the executor's retry loop can classify them; they must not panic for
// expected failure modes.
type Responder interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a plain function to the Responder interface, in the manner of
// http.HandlerFunc. Useful for deterministic pipeline stages and tests.
type Func func(ctx context.Context, req Request) (*Response, error)

// Call implements Responder.
func (f Func) Call(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }
