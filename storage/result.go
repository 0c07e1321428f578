package storage

import "fmt"

// DeleteOutcome tells whether a deletion's effect is known.
type DeleteOutcome int

const (
	// DeleteKnown means Removed is exact.
	DeleteKnown DeleteOutcome = iota + 1
	// DeleteUnknown means the store failed part way and the number of
	// removed chunks cannot be determined.
	DeleteUnknown
)

// UnknownCount is reported by DeleteResult.Count for unknown outcomes.
const UnknownCount = -1

// DeleteResult reports the effect of a best-effort deletion.
type DeleteResult struct {
	Outcome DeleteOutcome
	Removed int
	Err     error
}

// Deleted returns a known outcome that removed n chunks.
func Deleted(n int) DeleteResult {
	return DeleteResult{Outcome: DeleteKnown, Removed: n}
}

// DeleteFailed returns an unknown outcome caused by err.
func DeleteFailed(err error) DeleteResult {
	return DeleteResult{Outcome: DeleteUnknown, Removed: UnknownCount, Err: err}
}

// Known reports whether the number of removed chunks is exact.
func (r DeleteResult) Known() bool {
	return r.Outcome == DeleteKnown
}

// Count returns the number of removed chunks, or UnknownCount.
func (r DeleteResult) Count() int {
	if !r.Known() {
		return UnknownCount
	}
	return r.Removed
}

func (r DeleteResult) String() string {
	if !r.Known() {
		return fmt.Sprintf("unknown (%v)", r.Err)
	}
	return fmt.Sprintf("%d removed", r.Removed)
}
