package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusIdle.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusTimedOut.Terminal())
}

func TestExecutionResultString(t *testing.T) {
	ok := ExecutionResult{AgentName: "writer", Success: true, Output: "draft"}
	assert.Equal(t, "ExecutionResult(writer): draft", ok.String())

	bad := ExecutionResult{AgentName: "writer", Err: "backend down"}
	assert.Equal(t, "ExecutionResult(writer) ERROR: backend down", bad.String())
}

func TestNewFlowEvent(t *testing.T) {
	before := time.Now().UTC()
	ev := NewFlowEvent(EventStepStart, "pipeline", "step_0", map[string]any{"agent": "a"})

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventStepStart, ev.Kind)
	assert.Equal(t, "pipeline", ev.FlowName)
	assert.Equal(t, "step_0", ev.StepName)
	assert.False(t, ev.Timestamp.Before(before))
	assert.Equal(t, "a", ev.Data["agent"])

	other := NewFlowEvent(EventStepStart, "pipeline", "step_0", nil)
	assert.NotEqual(t, ev.ID, other.ID)
	assert.NotNil(t, other.Data)
}
