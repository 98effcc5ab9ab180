package runner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/engine"
)

// ParallelRunner dispatches node bodies concurrently, bounded to n
// in-flight executions, via golang.org/x/sync/errgroup and
// golang.org/x/sync/semaphore — the idiomatic Go replacement for the
// original's hand-rolled TaskManager/condition-variable worker pool
// (runners/Parallel.hpp). Diff-drain, sort, and done-bookkeeping stay
// pinned to a single dedicated goroutine (the main queue, P5); only node
// bodies run on the exec pool.
//
// Freshness policy (§9 Open Question, resolved toward freshness): a Run
// call that arrives while a dispatch pass is already executing is simply
// queued; once the in-flight pass finishes, the main loop picks up the
// latest queued prepare call — which has already folded in every diff
// posted since the pass began — and starts a wholly fresh pass over the
// graph's current Pending nodes, rather than resuming the old pass's
// stale waiting set.
type ParallelRunner struct {
	sem *semaphore.Weighted

	mu      sync.Mutex
	pending []Prepare
	running bool
}

// NewParallelRunner creates a ParallelRunner bounding concurrent node
// execution to n goroutines.
func NewParallelRunner(n int) *ParallelRunner {
	if n < 1 {
		n = 1
	}
	return &ParallelRunner{sem: semaphore.NewWeighted(int64(n))}
}

// Run queues prepare for dispatch on the main loop.
func (r *ParallelRunner) Run(prepare Prepare) {
	r.mu.Lock()
	r.pending = append(r.pending, prepare)
	start := !r.running
	r.running = true
	r.mu.Unlock()

	if start {
		go r.mainLoop()
	}
}

func (r *ParallelRunner) mainLoop() {
	for {
		r.mu.Lock()
		batch := r.pending
		r.pending = nil
		r.mu.Unlock()

		if len(batch) == 0 {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			return
		}

		// Coalesce: only the last queued prepare call needs to run — it
		// already reflects every diff posted up to this point.
		nodes := batch[len(batch)-1]()
		r.dispatchCycle(nodes)
	}
}

// dispatchCycle runs passes over nodes until no Pending+Ready node remains.
// Each pass dispatches every currently-ready node concurrently (bounded by
// the semaphore) and waits for that pass to finish before re-scanning —
// later passes pick up nodes that became ready only because an earlier
// pass's node just wrote their last missing input. If a Run call was queued
// while a pass executed, the cycle ends after that pass so the main loop
// can start fresh.
func (r *ParallelRunner) dispatchCycle(nodes []*engine.Node) {
	ctx := context.Background()
	for {
		g, gctx := errgroup.WithContext(ctx)
		dispatched := false

		for _, n := range nodes {
			n := n
			if !dispatchable(n) {
				continue
			}
			if err := r.sem.Acquire(gctx, 1); err != nil {
				continue
			}
			dispatched = true
			g.Go(func() error {
				defer r.sem.Release(1)
				n.Run()
				return nil
			})
		}

		_ = g.Wait()
		if !dispatched {
			return
		}

		// A Run call queued during this pass ends the cycle here; the main
		// loop then starts a fresh pass from the latest prepare closure.
		r.mu.Lock()
		fresh := len(r.pending) > 0
		r.mu.Unlock()
		if fresh {
			return
		}
	}
}

// dispatchable reports whether n is eligible for a dispatch attempt this
// pass: still Pending and with every input holding a value. Node.Run is a
// no-op otherwise, but checking here avoids burning a semaphore slot and a
// goroutine on a node that can't possibly execute yet.
func dispatchable(n *engine.Node) bool {
	return n.State() == domain.NodePending && n.Ready()
}
