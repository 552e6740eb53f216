package state

import "time"

// Snapshot is an immutable, labeled copy of the state mapping at one point
// in flow execution. Snapshots are append-only audit records: once created
// they are never mutated, and rollbacks do not remove them.
type Snapshot struct {
	// Seq is the monotonically increasing sequence number, starting at 0
	// for the first snapshot of a FlowState.
	Seq int `json:"seq"`
	// Label names the step (or caller-chosen checkpoint) that produced the
	// snapshot.
	Label string `json:"label"`
	// Timestamp is the UTC wall-clock time of creation.
	Timestamp time.Time `json:"timestamp"`
	// Data is the full state mapping at creation time. Accessors hand out
	// deep copies so holders cannot alter the audit trail.
	Data map[string]any `json:"state"`
}

// clone returns a snapshot whose Data is independent of the stored one.
func (s Snapshot) clone() Snapshot {
	s.Data = deepCopyMap(s.Data)
	return s
}
