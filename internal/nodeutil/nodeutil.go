// Package nodeutil supplies thin decorators built on top of the Core/Graph
// API, adapting original_source/src/publish/nil/gate/nodes/Deferred.hpp and
// Scoped.hpp to Go. Neither type is part of the commit protocol itself —
// they live outside the C1-C8 packages, composing Core.Post and Graph.Remove
// the same way any other application code would.
package nodeutil

import (
	"context"
	"sync"

	"github.com/nilgate/gate/internal/core"
	"github.com/nilgate/gate/internal/engine"
)

// Deferred wraps fn so its result is not written to out synchronously within
// the calling node's own execution: out.Set already pushes a diff onto its
// owning graph's queue (spec §4.1), which only lands on the *next* commit's
// drain (spec §4.6) — exactly the one-cycle delay Deferred exists to
// guarantee for a result computed outside the commit cycle entirely (e.g.
// from an async callback). Calling out.Set directly, rather than routing it
// through c.Post, matters here: Post's own closure is itself a diff, so
// wrapping an already-deferring Set inside one would push the value back by
// a second cycle instead of one.
//
// This is the Go shape of Deferred.hpp's behavior of posting a node's result
// through Core::post rather than returning it from operator() directly.
func Deferred[In, Out any](c *core.Core, out *engine.Port[Out], fn func(ctx context.Context, in In) (Out, error)) func(ctx context.Context, in In) error {
	return func(ctx context.Context, in In) error {
		result, err := fn(ctx, in)
		if err != nil {
			return err
		}
		out.Set(result)
		return nil
	}
}

// Scoped ties handle's presence in the graph to ctx: the first time the
// returned func is called it starts (once) a goroutine that waits for
// ctx.Done() and then schedules handle's removal as a next-cycle diff via
// c.Post — mirroring how any other graph mutation reaches Core from outside
// a node body. It is the Go shape of Scoped.hpp's lifetime-binding role,
// adapted from C++ RAII (which has no Go equivalent) to context cancellation.
//
// handle is whatever Graph.Remove accepts for this node or port (typically
// the *engine.Node returned by engine.NewNode).
func Scoped(ctx context.Context, c *core.Core, handle any) func() {
	var once sync.Once
	arm := func() {
		once.Do(func() {
			go func() {
				<-ctx.Done()
				c.Post(func(g *engine.Graph) { g.Remove(handle) })
			}()
		})
	}
	return arm
}
