package engine

import "github.com/nilgate/gate/internal/diffqueue"

// Batch groups several port writes so they reach the graph as a single
// deferred unit instead of each being posted to the core independently
// (spec §6 core.batch, §8 "batch atomicity"). This is the Go shape of the
// original's ports/Batch.hpp, which accumulates set/unset closures into a
// batch-local vector rather than pushing each straight to the shared diff
// queue: nothing the batch records is visible to any write path until
// Apply, and Apply pushes the whole recorded group as a *single* diff, so
// every write in it lands in the same drain pass — a downstream node
// observes the full set together, never a partial batch, even if a commit
// races in after some BatchSet calls but before Apply.
type Batch struct {
	ops   []func()
	queue *diffqueue.Queue
}

// NewBatch creates an empty batch with no owning queue: Apply runs its
// recorded writes immediately, synchronously. Used for testing Batch's
// accumulation behavior in isolation, below the level of a graph/commit.
func NewBatch() *Batch { return &Batch{} }

// NewGraphBatch creates an empty batch whose Apply defers its writes as one
// diff group on g's queue (spec §6 core.batch).
func NewGraphBatch(g *Graph) *Batch { return &Batch{queue: &g.queue} }

// BatchSet records a direct value write to apply when the batch is
// released. It is a package-level function, not a *Batch method, for the
// same reason RegisterCompatibility is: Go methods can't introduce their
// own type parameters. It calls p's mutation directly rather than through
// Set, so that Apply's single diff push is the only deferral that happens —
// recording through Set here would re-enqueue each write independently and
// defeat the batch's atomicity guarantee.
func BatchSet[T any](b *Batch, p *Port[T], v T) {
	b.ops = append(b.ops, func() { p.doSet(v) })
}

// BatchUnset records a direct unset to apply when the batch is released.
func BatchUnset[T any](b *Batch, p *Port[T]) {
	b.ops = append(b.ops, func() { p.doUnset() })
}

// Apply releases the batch. With an owning queue (NewGraphBatch), every
// recorded write is pushed as one diff, so they all land in the same
// drain pass; without one (NewBatch), the writes run immediately in the
// order recorded.
func (b *Batch) Apply() {
	ops := b.ops
	b.ops = nil
	if b.queue != nil {
		b.queue.Push(func() {
			for _, op := range ops {
				op()
			}
		})
		return
	}
	for _, op := range ops {
		op()
	}
}

// Len reports how many writes are queued in the batch.
func (b *Batch) Len() int { return len(b.ops) }
