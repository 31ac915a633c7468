package runtime

import "sync/atomic"

// Generation is a monotonic counter used for cooperative cancellation of
// read loops. A loop captures the value at start and abandons itself, with
// no further state mutation, once a newer generation supersedes it. Stale
// loops stop touching shared state at their next suspension point instead
// of having their transport torn down under them.
type Generation struct {
	n atomic.Int64
}

// Next supersedes all previous generations and returns the new one.
func (g *Generation) Next() int64 {
	return g.n.Add(1)
}

// Current returns the active generation.
func (g *Generation) Current() int64 {
	return g.n.Load()
}

// IsStale reports whether gen has been superseded.
func (g *Generation) IsStale(gen int64) bool {
	return g.n.Load() != gen
}
