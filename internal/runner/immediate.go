package runner

// ImmediateRunner dispatches synchronously on the calling goroutine: it
// prepares the graph and runs every sorted node in order, in-line, before
// Run returns. The simplest of the original's runners
// (runners/Immediate.hpp) — no deferral, no concurrency.
type ImmediateRunner struct{}

// NewImmediateRunner creates an ImmediateRunner.
func NewImmediateRunner() *ImmediateRunner { return &ImmediateRunner{} }

// Run prepares the graph and runs its sorted nodes in order, synchronously.
func (r *ImmediateRunner) Run(prepare Prepare) {
	for _, n := range prepare() {
		n.Run()
	}
}
