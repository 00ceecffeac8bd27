package pipeline

import "sync"

// Output is a single-slot result cell populated by a consumer goroutine
// when its stream has fully drained. Value reports false until the run
// (or Close) completes, so a caller can never observe a partial result.
type Output[T any] struct {
	mu  sync.Mutex
	val T
	set bool
}

func (o *Output[T]) store(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.val = v
	o.set = true
}

// Value returns the captured result. The second return is false while
// the pipeline is still running or when the output never materialized.
func (o *Output[T]) Value() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.val, o.set
}
