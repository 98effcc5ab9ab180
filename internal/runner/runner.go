// Package runner implements the Runner contract (spec §4.7, C7) and its
// built-in strategies: Immediate, SoftBlocking, NonBlocking, and Parallel(N).
// A Runner's single responsibility is dispatching a commit cycle's sorted
// node view; it never decides *what* runs, only *how* the dispatch is
// scheduled relative to the caller.
package runner

import "github.com/nilgate/gate/internal/engine"

// Prepare is the work closure a commit hands to a Runner: applying every
// posted change and returning the graph's topologically-sorted node view,
// ready for dispatch. Matches spec §4.7's "a work closure that prepares the
// graph and returns the sorted node view".
type Prepare func() []*engine.Node

// Runner dispatches one commit cycle's nodes. Implementations differ only
// in scheduling: whether Run blocks the caller until the cycle's nodes have
// all run, and whether node bodies run sequentially or concurrently.
type Runner interface {
	Run(prepare Prepare)
}
