// Package fdlimit detects the process file-descriptor budget.
//
// Key-grouped splitting keeps many output files open at once; the cache bound
// for those handles is derived from the descriptor limit so a run never
// outgrows what the OS will actually allow.
package fdlimit

// DefaultLimit is the fallback descriptor limit used when platform-specific
// detection fails or is unsupported.
const DefaultLimit = 1024

// Bounds for the derived handle cap.
const (
	maxHandleCap = 1000
	minHandleCap = 64
)

// Result holds the result of descriptor-limit detection.
type Result struct {
	// Limit is the soft limit on open file descriptors.
	Limit int

	// Reliable indicates whether the value came from the OS (true) or is
	// the fallback default (false).
	Reliable bool
}

// Budget returns the process descriptor limit. If detection fails or is
// unsupported, it returns DefaultLimit with Reliable=false.
func Budget() Result {
	limit, ok := openFileLimit()
	if !ok || limit == 0 {
		return Result{Limit: DefaultLimit, Reliable: false}
	}
	return Result{Limit: limit, Reliable: true}
}

// HandleCap returns a default bound for concurrently open output files:
// half the descriptor budget, capped to [64, 1000]. The remainder of the
// budget is left for the input stream, logging, and whatever the embedding
// process needs.
func HandleCap() int {
	cap := Budget().Limit / 2
	if cap > maxHandleCap {
		cap = maxHandleCap
	}
	if cap < minHandleCap {
		cap = minHandleCap
	}
	return cap
}
