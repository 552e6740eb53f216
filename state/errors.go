package state

import "errors"

var (
	// ErrKeyLocked is returned when a write targets a key present in the
	// locked set. Lock violations never partially apply: Update and Merge
	// reject the whole batch.
	ErrKeyLocked = errors.New("state key is locked")

	// ErrUnknownSnapshot is returned by RollbackTo and SnapshotAt when the
	// sequence number does not identify a recorded snapshot.
	ErrUnknownSnapshot = errors.New("unknown snapshot sequence")
)
