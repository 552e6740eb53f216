package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow-go/agentflow/agent"
	"github.com/agentflow-go/agentflow/core"
	"github.com/agentflow-go/agentflow/responder"
	"github.com/agentflow-go/agentflow/router"
)

// newMockAgent builds an executor over a fresh mock with retries disabled so
// failure tests do not sleep.
func newMockAgent(name string) (*agent.Executor, *responder.Mock) {
	cfg := agent.DefaultConfig(name, "test agent")
	cfg.RetryDelay = 0
	mock := responder.NewMock()
	return agent.New(cfg, mock), mock
}

func TestNewFlowStartsIdle(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	assert.Equal(t, "pipeline", f.Name())
	assert.Equal(t, core.StatusIdle, f.Status())
	assert.Empty(t, f.Steps())
	assert.Empty(t, f.Events())
}

func TestAddAgentRegistrationOrder(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	for _, name := range []string{"c", "a", "b"} {
		exec, _ := newMockAgent(name)
		require.NoError(t, f.AddAgent(exec))
	}
	assert.Equal(t, []string{"c", "a", "b"}, f.AgentNames())
}

func TestAddAgentReplaceKeepsOrder(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	first, _ := newMockAgent("a")
	second, _ := newMockAgent("b")
	require.NoError(t, f.AddAgent(first))
	require.NoError(t, f.AddAgent(second))

	replacement, _ := newMockAgent("a")
	require.NoError(t, f.AddAgent(replacement))
	assert.Equal(t, []string{"a", "b"}, f.AgentNames())
}

func TestAddStepUnknownAgent(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	require.ErrorIs(t, f.AddStep("ghost"), ErrUnknownAgent)
	require.ErrorIs(t, f.AddParallelStep([]string{"ghost"}), ErrUnknownAgent)
	assert.Empty(t, f.Steps())
}

func TestAddRoutedStepRequiresRouter(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	require.Error(t, f.AddRoutedStep(nil))
	require.NoError(t, f.AddRoutedStep(router.NewRoundRobin("a")))
	steps := f.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, core.StepRouted, steps[0].Kind)
}

func TestStepOptions(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	exec, _ := newMockAgent("a")
	require.NoError(t, f.AddAgent(exec))
	require.NoError(t, f.AddStep("a",
		WithDependsOn(0),
		WithMetadata(map[string]any{"stage": "draft"}),
	))

	step := f.Steps()[0]
	assert.Equal(t, core.StepSequential, step.Kind)
	assert.Equal(t, "a", step.Agent)
	assert.Equal(t, []int{0}, step.DependsOn)
	assert.Equal(t, "draft", step.Metadata["stage"])
}

func TestStepsReturnsACopy(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	exec, _ := newMockAgent("a")
	require.NoError(t, f.AddAgent(exec))
	require.NoError(t, f.AddStep("a"))

	steps := f.Steps()
	steps[0].Agent = "tampered"
	assert.Equal(t, "a", f.Steps()[0].Agent)
}

func TestNilHooksAreIgnored(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	f.OnStepStart(nil)
	f.OnStepComplete(nil)
	f.OnError(nil)
	// No panic when events fire without hooks.
	f.emit(core.NewFlowEvent(core.EventStepStart, "pipeline", "s", nil))
	assert.Len(t, f.Events(), 1)
}

func TestClearEvents(t *testing.T) {
	f := New(DefaultConfig("pipeline"))
	f.emit(core.NewFlowEvent(core.EventStepStart, "pipeline", "s", nil))
	require.Len(t, f.Events(), 1)
	f.ClearEvents()
	assert.Empty(t, f.Events())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Name: "bare"}.withDefaults()
	assert.Zero(t, cfg.Timeout, "zero timeout stays unbounded")
	assert.Equal(t, DefaultConfig("bare").MaxParallel, cfg.MaxParallel)
	assert.Equal(t, DefaultConfig("bare").GracePeriod, cfg.GracePeriod)
}
