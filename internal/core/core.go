// Package core implements the Core facade and commit protocol (spec §4.6,
// C6): the entry point that batches producer-side mutations into diffs and
// hands a work closure to the configured Runner every commit.
package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilgate/gate/internal/engine"
	"github.com/nilgate/gate/internal/ports"
	"github.com/nilgate/gate/internal/runner"
)

// Core owns the Graph, and through it the diff queue every port and node
// created against that graph is attached to; it references a Runner without
// owning it, since the Runner is supplied externally and outlives the Core
// (spec §4's ownership summary). All producer-side mutations — Post calls,
// Port.Set/Unset, and a node's optional-output writes — land in the graph's
// diff queue and are only applied at the start of a commit's work closure.
type Core struct {
	graph   *engine.Graph
	runner  runner.Runner
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// Option configures optional Core behavior at construction.
type Option func(*Core)

// WithMetrics attaches a MetricsCollector; commit latency and the diff-queue
// depth at the start of each Commit are reported through it. Node-execution
// outcomes are not reported by Core.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(c *Core) { c.metrics = m }
}

// NewCore creates a Core wired to graph and dispatching through runner.
func NewCore(graph *engine.Graph, r runner.Runner, opts ...Option) *Core {
	c := &Core{
		graph:  graph,
		runner: r,
		tracer: otel.Tracer("gate-core"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Runner returns the Core's current Runner.
func (c *Core) Runner() runner.Runner { return c.runner }

// SetRunner swaps the Runner used by future commits. It does not affect a
// commit already handed to the previous Runner.
func (c *Core) SetRunner(r runner.Runner) { c.runner = r }

// Graph returns the Core's underlying graph, for callers that need direct
// access to Sort/Remove/Clear alongside the Port/Node/Batch factories below.
func (c *Core) Graph() *engine.Graph { return c.graph }

// Port creates an independent port on the Core's graph, attached to its diff
// queue so producer-side Set/Unset calls defer to the next commit (spec §6
// core.port). A package-level function, not a method, since Go methods can't
// introduce their own type parameters.
func Port[T any](c *Core, equal func(a, b T) bool) *engine.Port[T] {
	return engine.NewGraphPort[T](c.graph, equal)
}

// PortWithValue creates an independent port already holding v on the Core's
// graph (spec §6 core.port).
func PortWithValue[T any](c *Core, equal func(a, b T) bool, v T) *engine.Port[T] {
	return engine.NewGraphPortWithValue[T](c.graph, equal, v)
}

// Node registers a node on the Core's graph (spec §6 core.node); its output
// ports are attached to the graph's diff queue exactly as engine.NewNode
// already arranges.
func (c *Core) Node(spec engine.NodeSpec) (*engine.Node, error) {
	return engine.NewNode(c.graph, spec)
}

// Batch opens a batch whose Apply defers its accumulated writes as a single
// diff on the Core's graph queue (spec §6 core.batch, §8 batch atomicity).
func (c *Core) Batch() *engine.Batch {
	return engine.NewGraphBatch(c.graph)
}

// Post enqueues a change-closure diff that runs with graph access during the
// next commit's diff-drain, in enqueue order alongside any pending
// Port.Set/Unset diffs (spec §4.6, "application-supplied change-closures via
// post/apply"). A node body calling Post (e.g. to add a node from within its
// own execution) has its diff deferred to the *next* cycle's drain, never
// the current one.
func (c *Core) Post(fn func(g *engine.Graph)) {
	c.graph.Queue().Push(func() { fn(c.graph) })
}

// Apply is Post's synonym for a closure that doesn't need graph access
// beyond what it already captured.
func (c *Core) Apply(fn func()) {
	c.graph.Queue().Push(fn)
}

// Commit runs one cycle of the commit protocol (spec §4.6): it hands the
// Runner a work closure that drains the diff queue in FIFO order, re-sorts
// the graph if topology changed, and returns the sorted node view; the
// Runner then dispatches run() over that view per its own scheduling
// policy. New diffs produced during this cycle (e.g. from a node's Post
// call, or an optional output feeding back via nodeutil.Deferred) remain
// queued and are drained at the start of the *next* Commit.
func (c *Core) Commit(ctx context.Context) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "Core.Commit")
	defer span.End()

	depth := c.graph.Queue().Len()
	span.SetAttributes(attribute.Int("diff_queue.depth", depth))
	c.recordGauge("diff_queue_depth", float64(depth))

	c.runner.Run(func() []*engine.Node {
		_, prepSpan := c.tracer.Start(ctx, "Core.prepare")
		defer prepSpan.End()

		c.graph.Queue().Flush()()
		return c.graph.Sort()
	})

	c.recordLatency("commit", time.Since(start))
}

func (c *Core) recordLatency(op string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLatency(op, d, nil)
}

func (c *Core) recordGauge(metric string, v float64) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordGauge(metric, v, nil)
}
