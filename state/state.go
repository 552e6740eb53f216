// Package state implements the versioned key/value store shared across a
// flow run. The store is copy-on-write: every mutation builds a fresh mapping
// and swaps it in under the write lock, so concurrent readers always observe
// a complete before- or after-image and never a partially applied write.
// Reads additionally return defensive copies, so a caller can never mutate
// the live store through a value it obtained from Get or a Snapshot.
package state

import (
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"
)

// FlowState manages flow-scoped state with immutable snapshots, advisory key
// locks and rollback. It is safe for concurrent use; all mutators are
// mutually exclusive and reads may proceed concurrently with each other.
type FlowState struct {
	mu      sync.RWMutex
	current map[string]any
	history []Snapshot
	locked  map[string]struct{}
}

// New constructs a FlowState seeded with a deep copy of initial. A nil
// initial map yields an empty state.
func New(initial map[string]any) *FlowState {
	return &FlowState{
		current: deepCopyMap(initial),
		locked:  make(map[string]struct{}),
	}
}

// Get returns a defensive copy of the value stored under key and whether the
// key was present.
func (s *FlowState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.current[key]
	if !ok {
		return nil, false
	}
	return deepCopyValue(v), true
}

// GetOr returns the value stored under key, or def when absent. Like Get the
// returned value is a copy and never an alias into the store.
func (s *FlowState) GetOr(key string, def any) any {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// Set writes value under key. It fails with ErrKeyLocked when the key is
// locked; the write is then not applied. A successful Set is visible to
// subsequent reads immediately but is not itself a history event.
func (s *FlowState) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, locked := s.locked[key]; locked {
		return fmt.Errorf("%w: %q", ErrKeyLocked, key)
	}
	next := deepCopyMap(s.current)
	next[key] = deepCopyValue(value)
	s.current = next
	return nil
}

// Update applies all entries of updates atomically: if any key is locked the
// whole update is rejected with ErrKeyLocked and the state is unchanged.
func (s *FlowState) Update(updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range updates {
		if _, locked := s.locked[key]; locked {
			return fmt.Errorf("%w: %q", ErrKeyLocked, key)
		}
	}
	next := deepCopyMap(s.current)
	for key, value := range updates {
		next[key] = deepCopyValue(value)
	}
	s.current = next
	return nil
}

// Lock marks key as write-protected. Locking is advisory per-process state:
// it guards Set/Update/Merge within this FlowState and survives
// serialization, but is not a cross-process mechanism.
func (s *FlowState) Lock(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked[key] = struct{}{}
}

// Unlock removes the write protection for key. Unlocking an unlocked key is
// a no-op.
func (s *FlowState) Unlock(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locked, key)
}

// IsLocked reports whether key is currently locked.
func (s *FlowState) IsLocked(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.locked[key]
	return ok
}

// Len returns the number of keys in the current mapping.
func (s *FlowState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.current)
}

// Keys returns the keys of the current mapping in sorted order.
func (s *FlowState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.current))
	for k := range s.current {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot appends a new snapshot capturing the current mapping under label
// and returns its sequence number. This is how the orchestrator records
// "state after step N".
func (s *FlowState) Snapshot(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Seq:       len(s.history),
		Label:     label,
		Timestamp: time.Now().UTC(),
		Data:      deepCopyMap(s.current),
	}
	s.history = append(s.history, snap)
	return snap.Seq
}

// History returns a lazy, restartable sequence over all snapshots in
// creation order. Each yielded snapshot is a read-only copy. The sequence is
// built from the history as of the History call; snapshots appended later
// are not included.
func (s *FlowState) History() iter.Seq[Snapshot] {
	s.mu.RLock()
	snaps := make([]Snapshot, len(s.history))
	copy(snaps, s.history)
	s.mu.RUnlock()

	return func(yield func(Snapshot) bool) {
		for _, snap := range snaps {
			if !yield(snap.clone()) {
				return
			}
		}
	}
}

// HistoryLen returns the number of recorded snapshots.
func (s *FlowState) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// SnapshotAt returns a copy of the snapshot with the given sequence number.
func (s *FlowState) SnapshotAt(seq int) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seq < 0 || seq >= len(s.history) {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnknownSnapshot, seq)
	}
	return s.history[seq].clone(), nil
}

// RollbackTo replaces the current mapping with a copy of the snapshot
// identified by seq. The history is an append-only audit trail, not an undo
// stack: later snapshots remain recorded and stay valid rollback targets.
func (s *FlowState) RollbackTo(seq int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < 0 || seq >= len(s.history) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, seq)
	}
	s.current = deepCopyMap(s.history[seq].Data)
	return nil
}

// Branch carries one parallel branch's resulting values into a Merge call.
type Branch struct {
	Name   string
	Values map[string]any
}

// Merge combines the results of parallel branches into the current state.
// Branches are applied in the supplied slice order with last-writer-wins for
// conflicting keys, so callers must pass a deterministic order (typically
// the declared agent order of the parallel step). The merge is atomic with
// respect to key locks: if any branch writes a locked key, nothing is
// applied and ErrKeyLocked is returned.
func (s *FlowState) Merge(branches []Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range branches {
		for key := range b.Values {
			if _, locked := s.locked[key]; locked {
				return fmt.Errorf("%w: %q (branch %q)", ErrKeyLocked, key, b.Name)
			}
		}
	}
	next := deepCopyMap(s.current)
	for _, b := range branches {
		for key, value := range b.Values {
			next[key] = deepCopyValue(value)
		}
	}
	s.current = next
	return nil
}

// Clone returns an independent FlowState with the same current mapping,
// history and locked keys. Parallel workers use clones as private logical
// views while the coordinating goroutine owns the shared instance.
func (s *FlowState) Clone() *FlowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &FlowState{
		current: deepCopyMap(s.current),
		history: make([]Snapshot, len(s.history)),
		locked:  make(map[string]struct{}, len(s.locked)),
	}
	for i, snap := range s.history {
		clone.history[i] = snap.clone()
	}
	for k := range s.locked {
		clone.locked[k] = struct{}{}
	}
	return clone
}

// deepCopyMap copies a string-keyed map, recursing into nested maps and
// slices. A nil input yields an empty map.
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue copies nested map[string]any and []any structures. Other
// values are returned as-is: Go value types are copied by assignment and
// the store treats opaque pointer values as caller-owned.
func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
