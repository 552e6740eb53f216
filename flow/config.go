package flow

import "time"

// Config holds the flow-level settings fixed at construction time.
type Config struct {
	// Name identifies the flow in events and logs.
	Name string
	// Description is informational.
	Description string
	// Timeout bounds the wall-clock duration of one run. Zero means
	// unbounded.
	Timeout time.Duration
	// MaxParallel bounds the worker pool for parallel steps. Groups larger
	// than the limit queue on the pool rather than failing.
	MaxParallel int
	// GracePeriod is how long in-flight parallel workers may keep running
	// after the run deadline before they are abandoned and their slots
	// marked as timeout failures.
	GracePeriod time.Duration
	// Metadata is free-form and not interpreted by the orchestrator.
	Metadata map[string]any
}

// DefaultConfig returns the library defaults: five minute timeout, five
// parallel workers, two second grace period.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		Timeout:     5 * time.Minute,
		MaxParallel: 5,
		GracePeriod: 2 * time.Second,
	}
}

// withDefaults fills unset fields so a zero Config is usable.
func (c Config) withDefaults() Config {
	if c.MaxParallel <= 0 {
		c.MaxParallel = 5
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 2 * time.Second
	}
	return c
}
