package runner

import "sync"

// request is one queued dispatch: the prepare closure captured at Run-call
// time, and (for a blocking caller) the channel to close once the batch
// containing this request has been dispatched.
type request struct {
	prepare Prepare
	done    chan struct{}
}

// asyncQueue is the shared dedicated-worker-thread shape behind both
// SoftBlockingRunner and NonBlockingRunner (runners/SoftBlocking.hpp and
// runners/NonBlocking.hpp in the original — identical queues, differing
// only in whether the caller blocks). A single worker goroutine drains
// every request queued since its last pass as one batch and dispatches
// only the *last* request's prepare closure — earlier requests in the same
// batch already had their diffs folded into that last prepare call, so
// coalescing avoids re-sorting and re-running nodes once per intervening
// Run call.
type asyncQueue struct {
	mu      sync.Mutex
	pending []request
	running bool
}

func (q *asyncQueue) enqueue(prepare Prepare, blocking bool) {
	req := request{prepare: prepare}
	if blocking {
		req.done = make(chan struct{})
	}

	q.mu.Lock()
	q.pending = append(q.pending, req)
	start := !q.running
	q.running = true
	q.mu.Unlock()

	if start {
		go q.loop()
	}

	if blocking {
		<-req.done
	}
}

func (q *asyncQueue) loop() {
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			q.mu.Lock()
			q.running = false
			q.mu.Unlock()
			return
		}

		last := batch[len(batch)-1]
		for _, n := range last.prepare() {
			n.Run()
		}

		for _, req := range batch {
			if req.done != nil {
				close(req.done)
			}
		}
	}
}

// SoftBlockingRunner queues dispatch on a dedicated worker goroutine and
// blocks the caller until the batch containing its request has run.
type SoftBlockingRunner struct{ q asyncQueue }

// NewSoftBlockingRunner creates a SoftBlockingRunner.
func NewSoftBlockingRunner() *SoftBlockingRunner { return &SoftBlockingRunner{} }

// Run queues prepare and blocks until its batch has been dispatched.
func (r *SoftBlockingRunner) Run(prepare Prepare) { r.q.enqueue(prepare, true) }

// NonBlockingRunner queues dispatch on a dedicated worker goroutine and
// returns immediately without waiting for it to run.
type NonBlockingRunner struct{ q asyncQueue }

// NewNonBlockingRunner creates a NonBlockingRunner.
func NewNonBlockingRunner() *NonBlockingRunner { return &NonBlockingRunner{} }

// Run queues prepare and returns immediately.
func (r *NonBlockingRunner) Run(prepare Prepare) { r.q.enqueue(prepare, false) }
