package state

import (
	"encoding/json"
	"sort"
)

// Record is the serializable form of a FlowState: the current mapping, the
// ordered snapshot history and the locked-key set. It round-trips exactly
// through ToRecord/FromRecord, and through JSON via the Marshaler /
// Unmarshaler implementations layered on top.
type Record struct {
	State   map[string]any `json:"state"`
	History []Snapshot     `json:"history,omitempty"`
	Locked  []string       `json:"locked,omitempty"`
}

// Map returns a deep copy of the current mapping. The orchestrator uses this
// to expose the final state as a plain serializable map in run results.
func (s *FlowState) Map() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.current)
}

// ToRecord captures the full state (mapping, history, locks) as an
// independent Record. Mutating the record does not affect the live state.
func (s *FlowState) ToRecord() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := Record{
		State:   deepCopyMap(s.current),
		History: make([]Snapshot, len(s.history)),
		Locked:  make([]string, 0, len(s.locked)),
	}
	for i, snap := range s.history {
		rec.History[i] = snap.clone()
	}
	for k := range s.locked {
		rec.Locked = append(rec.Locked, k)
	}
	sort.Strings(rec.Locked)
	return rec
}

// FromRecord reconstructs a FlowState from a previously captured Record. The
// locked-key set is restored so a reloaded state preserves write protection.
// History sequence numbers are renumbered to their positional order, which
// matches any record produced by ToRecord.
func FromRecord(rec Record) *FlowState {
	s := &FlowState{
		current: deepCopyMap(rec.State),
		history: make([]Snapshot, len(rec.History)),
		locked:  make(map[string]struct{}, len(rec.Locked)),
	}
	for i, snap := range rec.History {
		c := snap.clone()
		c.Seq = i
		s.history[i] = c
	}
	for _, k := range rec.Locked {
		s.locked[k] = struct{}{}
	}
	return s
}

// MarshalJSON encodes the state as its Record form.
func (s *FlowState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToRecord())
}

// UnmarshalJSON replaces the receiver's contents with the decoded record.
func (s *FlowState) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	restored := FromRecord(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = restored.current
	s.history = restored.history
	s.locked = restored.locked
	return nil
}
