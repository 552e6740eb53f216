package router

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow-go/agentflow/state"
)

var allAgents = []string{"billing", "tech", "general"}

func TestConditionalFirstMatchWins(t *testing.T) {
	r := NewConditional([]Condition{
		{Agent: "billing", When: func(input any, _ *state.FlowState) bool {
			return strings.Contains(input.(string), "invoice")
		}},
		{Agent: "tech", When: func(input any, _ *state.FlowState) bool {
			return true // would match everything, but billing is declared first
		}},
	}, "")

	decision, err := r.Decide("invoice overdue", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "billing", decision.NextAgent)
	assert.Equal(t, 1.0, decision.Confidence)
}

func TestConditionalDeclarationOrder(t *testing.T) {
	r := NewConditional([]Condition{
		{Agent: "tech", When: func(any, *state.FlowState) bool { return true }},
		{Agent: "billing", When: func(any, *state.FlowState) bool { return true }},
	}, "")

	decision, err := r.Decide("anything", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "tech", decision.NextAgent)
}

func TestConditionalDefaultFallback(t *testing.T) {
	r := NewConditional([]Condition{
		{Agent: "billing", When: func(any, *state.FlowState) bool { return false }},
	}, "general")

	decision, err := r.Decide("unmatched", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "general", decision.NextAgent)
	assert.Equal(t, 0.5, decision.Confidence)
}

func TestConditionalNoCandidate(t *testing.T) {
	r := NewConditional([]Condition{
		{Agent: "billing", When: func(any, *state.FlowState) bool { return false }},
	}, "")

	_, err := r.Decide("unmatched", state.New(nil), allAgents)
	require.ErrorIs(t, err, ErrNoCandidate)
}

func TestConditionalSkipsUnavailableAgents(t *testing.T) {
	r := NewConditional([]Condition{
		{Agent: "offline", When: func(any, *state.FlowState) bool { return true }},
		{Agent: "tech", When: func(any, *state.FlowState) bool { return true }},
	}, "")

	decision, err := r.Decide("anything", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "tech", decision.NextAgent)
}

func TestConditionalPanickingPredicateIsNoMatch(t *testing.T) {
	r := NewConditional([]Condition{
		{Agent: "billing", When: func(any, *state.FlowState) bool { panic("bad predicate") }},
		{Agent: "tech", When: func(any, *state.FlowState) bool { return true }},
	}, "")

	decision, err := r.Decide("anything", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "tech", decision.NextAgent)
}

func TestContentRoutesByCategory(t *testing.T) {
	r := NewContent(func(input any) (string, error) {
		if strings.Contains(input.(string), "refund") {
			return "billing", nil
		}
		return "other", nil
	}, map[string]string{"billing": "billing"}, "general")

	decision, err := r.Decide("please refund me", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "billing", decision.NextAgent)
	assert.Equal(t, 0.85, decision.Confidence)
	assert.Equal(t, "billing", decision.Metadata["category"])
}

func TestContentUnknownCategoryUsesDefault(t *testing.T) {
	r := NewContent(func(any) (string, error) {
		return "unmapped", nil
	}, map[string]string{"billing": "billing"}, "general")

	decision, err := r.Decide("hello", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "general", decision.NextAgent)
}

func TestContentClassifierErrorUsesDefault(t *testing.T) {
	r := NewContent(func(any) (string, error) {
		return "", fmt.Errorf("classifier unavailable")
	}, map[string]string{"billing": "billing"}, "general")

	decision, err := r.Decide("hello", state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "general", decision.NextAgent)
}

func TestContentNoCandidate(t *testing.T) {
	r := NewContent(func(any) (string, error) { return "unmapped", nil },
		map[string]string{}, "")

	_, err := r.Decide("hello", state.New(nil), allAgents)
	require.ErrorIs(t, err, ErrNoCandidate)
}

func TestFallbackPicksFirstAvailable(t *testing.T) {
	r := NewFallback("primary", "tech", "general")

	decision, err := r.Decide(nil, state.New(nil), allAgents)
	require.NoError(t, err)
	assert.Equal(t, "tech", decision.NextAgent, "primary is unavailable")
	assert.InDelta(t, 0.9, decision.Confidence, 0.0001)
	assert.Equal(t, 1, decision.Metadata["priority"])
}

func TestFallbackNoCandidate(t *testing.T) {
	r := NewFallback("gone", "missing")
	_, err := r.Decide(nil, state.New(nil), allAgents)
	require.ErrorIs(t, err, ErrNoCandidate)
}

func TestRoundRobinWrapsAround(t *testing.T) {
	r := NewRoundRobin("a", "b", "c")
	available := []string{"a", "b", "c"}

	var picks []string
	for i := 0; i < 4; i++ {
		decision, err := r.Decide(nil, state.New(nil), available)
		require.NoError(t, err)
		picks = append(picks, decision.NextAgent)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, picks)
}

func TestRoundRobinSkipsUnavailable(t *testing.T) {
	r := NewRoundRobin("a", "b", "c")
	available := []string{"a", "c"}

	first, err := r.Decide(nil, state.New(nil), available)
	require.NoError(t, err)
	second, err := r.Decide(nil, state.New(nil), available)
	require.NoError(t, err)

	assert.Equal(t, "a", first.NextAgent)
	assert.Equal(t, "c", second.NextAgent)
}

func TestRoundRobinNoCandidate(t *testing.T) {
	r := NewRoundRobin("a")
	_, err := r.Decide(nil, state.New(nil), []string{"b"})
	require.ErrorIs(t, err, ErrNoCandidate)
}

func TestRoundRobinConcurrentDecides(t *testing.T) {
	r := NewRoundRobin("a", "b", "c")
	available := []string{"a", "b", "c"}

	const calls = 99
	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := r.Decide(nil, state.New(nil), available)
			assert.NoError(t, err)
			mu.Lock()
			counts[decision.NextAgent]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// The shared cursor distributes calls evenly across the rotation.
	assert.Equal(t, calls/3, counts["a"])
	assert.Equal(t, calls/3, counts["b"])
	assert.Equal(t, calls/3, counts["c"])
}
