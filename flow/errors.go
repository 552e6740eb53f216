package flow

import "errors"

var (
	// ErrRunInProgress is returned when Run is called while another run is
	// active, or when the registry is mutated mid-run.
	ErrRunInProgress = errors.New("flow run already in progress")

	// ErrUnknownAgent is returned when a step references an agent that has
	// not been registered.
	ErrUnknownAgent = errors.New("agent not registered in flow")

	// ErrNoSteps is returned by Run when the flow has no declared steps.
	ErrNoSteps = errors.New("flow has no steps")

	// ErrRunTimeout marks a run whose deadline passed with steps remaining.
	ErrRunTimeout = errors.New("flow run deadline exceeded")

	// ErrStepTimeout marks a parallel worker that did not finish before the
	// grace deadline and was abandoned.
	ErrStepTimeout = errors.New("step deadline exceeded")
)
