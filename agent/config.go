package agent

import (
	"fmt"
	"time"
)

// ToolHandler executes one tool invocation with the arguments supplied by
// the responder. Returning an error fails the surrounding attempt; the
// executor stringifies it into the attempt's error description.
type ToolHandler func(args map[string]any) (any, error)

// ToolDefinition declares a tool an agent can use: a name the responder
// addresses it by, a description and parameter schema passed through to the
// backend (the schema is opaque to the core), and the handler invoked when
// the responder requests the tool.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     ToolHandler
}

// Config holds an agent's immutable settings. It is fixed once the executor
// is registered with a flow; the registry owns it for the flow's lifetime.
type Config struct {
	// Name uniquely identifies the agent inside a flow.
	Name string
	// Role is a human readable description of the agent's responsibility.
	Role string
	// Instructions is the static system prompt sent on every call.
	Instructions string
	// Model identifies the backend model; passed through to the responder
	// adapter via its own configuration, kept here for auditability.
	Model string
	// Temperature and MaxTokens are the generation parameters forwarded
	// with every request.
	Temperature float64
	MaxTokens   int
	// RetryAttempts bounds the number of responder calls per execution
	// (minimum 1). RetryDelay is the fixed wait between failed attempts.
	RetryAttempts int
	RetryDelay    time.Duration
	// Metadata is free-form and not interpreted by the core.
	Metadata map[string]any
}

// DefaultConfig returns a Config with the library defaults: three attempts
// with a one second fixed delay, temperature 0.7, 2048 max tokens.
func DefaultConfig(name, role string) Config {
	return Config{
		Name:          name,
		Role:          role,
		Model:         "gpt-4-turbo",
		Temperature:   0.7,
		MaxTokens:     2048,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// ToolError describes a failure inside the tool dispatch path: an unknown
// tool name, a missing handler or a handler error. It fails the attempt it
// occurred in and consumes the same retry budget as any other failure.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError for the named tool.
func NewToolError(tool, message string) *ToolError {
	return &ToolError{Tool: tool, Message: message}
}
