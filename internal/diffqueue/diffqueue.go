// Package diffqueue implements the commit protocol's deferred-mutation
// queue (spec §4.5): a thread-safe, single-consumer, many-producer FIFO of
// closures queued by Port.Set/Unset calls and drained exactly once per
// commit cycle.
package diffqueue

import "sync"

// Diff is a deferred mutation: applying it performs the actual port state
// change (pend/set/done or pend/unset/done) that a Port.Set/Unset call
// describes. Diffs are applied in the order they were pushed.
type Diff func()

// Queue accumulates diffs pushed from any goroutine and drains them as a
// single ordered batch. The zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	diffs []Diff
}

// Push appends d to the queue. Safe to call from any goroutine, including
// concurrently from multiple node bodies in a Parallel runner.
func (q *Queue) Push(d Diff) {
	q.mu.Lock()
	q.diffs = append(q.diffs, d)
	q.mu.Unlock()
}

// Len reports how many diffs are currently queued, for queue-depth metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.diffs)
}

// Flush atomically takes ownership of every diff queued so far and returns a
// single closure that applies them in order. The queue is empty again as
// soon as Flush returns, even before the returned closure runs — this
// matches the original's exchange-then-return-callable shape, so pushes
// that race with Flush land in the *next* batch rather than being lost or
// double-applied.
func (q *Queue) Flush() func() {
	q.mu.Lock()
	taken := q.diffs
	q.diffs = nil
	q.mu.Unlock()

	return func() {
		for _, d := range taken {
			d()
		}
	}
}
