// Package engine implements the graph engine's core types: typed ports
// (C1), the compatibility-adapted read path (C2), nodes (C3), the owning
// graph with topological sort (C4), and scoped batches for atomic
// multi-port writes.
package engine

import (
	"reflect"
	"sync"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/diffqueue"
	"github.com/nilgate/gate/internal/domain"
)

// AnyPort is the type-erased view of a port that Node and Graph operate
// over. Port[T] (independent, user-facing ports) and dataPort (node-owned
// output ports, built at registration time from a reflect.Type) both
// satisfy it — mirroring how the original keeps a user-facing Port<T> and a
// node-internal Data<T> as two distinct families with the same shape.
type AnyPort interface {
	HasValue() bool
	State() domain.PortState
	ElemType() reflect.Type
	Score() int
	Version() uint64
	// AnyValue returns the port's current value boxed as any, panicking with
	// domain.ErrNoValue if the port holds none — the type-erased counterpart
	// to Port[T].Value(), for callers (node registration, config, tests)
	// that only have an AnyPort handle.
	AnyValue() any
	valueAny() any
	applySetAny(v any)
	deferSetAny(v any)
	attachConsumer(n *Node)
	setOwner(n *Node)
	attachQueue(q *diffqueue.Queue)
	adaptTo(to reflect.Type, registry *adapt.Registry) (any, error)
}

// Port is an independently-created, typed value channel (spec §4.1). T's
// zero value is never treated as "no value" — HasValue is tracked
// explicitly, and Value panics if called before a value has ever been set.
type Port[T any] struct {
	mu        sync.Mutex
	state     domain.PortState
	hasValue  bool
	value     T
	version   uint64
	equal     func(a, b T) bool
	owner     *Node
	consumers []*Node
	adapters  adapt.Cache
	queue     *diffqueue.Queue
}

// NewPort creates an independent port with no value (Pending, per §4.1: a
// freshly-created value-less port awaits its first Set). equal must report
// whether two values of T are equal; Go has no operator overloading, so
// equality is always an explicit function rather than an assumed `==`,
// which also lets callers use Port[T] for non-comparable T (slices, maps)
// by supplying a semantic equality of their choosing.
func NewPort[T any](equal func(a, b T) bool) *Port[T] {
	return &Port[T]{state: domain.PortPending, equal: equal}
}

// NewPortWithValue creates an independent port already holding v (Stale —
// ready to be read immediately).
func NewPortWithValue[T any](equal func(a, b T) bool, v T) *Port[T] {
	return &Port[T]{state: domain.PortStale, hasValue: true, value: v, equal: equal}
}

// HasValue reports whether the port currently holds a value.
func (p *Port[T]) HasValue() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasValue
}

// Value returns the port's current value. It panics with domain.ErrNoValue
// if called without first checking HasValue — reading an empty port is a
// programmer-contract violation (spec §7.2), not a recoverable runtime
// condition.
func (p *Port[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasValue {
		panic(domain.ErrNoValue)
	}
	return p.value
}

// State reports the port's current lifecycle state.
func (p *Port[T]) State() domain.PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Version increments on every value change, newest value included. Used by
// the adapter cache to invalidate memoized conversions.
func (p *Port[T]) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// ElemType reports T's reflect.Type, used by Node registration (C8) to
// validate and adapt inputs.
func (p *Port[T]) ElemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Score delegates to the owning node's topological score, or 0 for an
// independent port with no owner — matching the original's `parent ?
// parent->score() : 0`.
func (p *Port[T]) Score() int {
	p.mu.Lock()
	owner := p.owner
	p.mu.Unlock()
	if owner == nil {
		return 0
	}
	return owner.Score()
}

// Set enqueues a diff that, when drained, replaces the port's value (spec
// §4.1). Per the original's Port<T>::set_value, the producer-facing call
// never mutates state itself — it only becomes observable once Core.Commit
// (or an explicit Graph.Drain, for tests working below Core) drains the
// owning diff queue. A port with no queue attached (created via NewPort
// rather than through a Graph) applies immediately, since there is nothing
// to defer to.
func (p *Port[T]) Set(v T) {
	if p.queue != nil {
		p.queue.Push(func() { p.doSet(v) })
		return
	}
	p.doSet(v)
}

// doSet performs the actual mutation a drained Set diff applies: compare
// against the current value under the port's equality predicate, and on
// inequality update the value, invalidate cached adapters, and notify every
// consumer — mirroring the original's pend()/set()/done() sequence.
func (p *Port[T]) doSet(v T) {
	p.mu.Lock()
	if p.hasValue && p.equal(p.value, v) {
		p.mu.Unlock()
		return
	}
	p.hasValue = true
	p.value = v
	p.version++
	p.state = domain.PortStale
	consumers := append([]*Node(nil), p.consumers...)
	p.mu.Unlock()

	p.adapters.Invalidate()
	for _, c := range consumers {
		c.notifyInputChanged()
	}
}

// Unset enqueues a diff that, when drained, clears the port's value,
// returning it to Pending. See Set for the deferral rule.
func (p *Port[T]) Unset() {
	if p.queue != nil {
		p.queue.Push(p.doUnset)
		return
	}
	p.doUnset()
}

func (p *Port[T]) doUnset() {
	p.mu.Lock()
	if !p.hasValue {
		p.mu.Unlock()
		return
	}
	var zero T
	p.hasValue = false
	p.value = zero
	p.version++
	p.state = domain.PortPending
	consumers := append([]*Node(nil), p.consumers...)
	p.mu.Unlock()

	p.adapters.Invalidate()
	for _, c := range consumers {
		c.notifyInputChanged()
	}
}

// AnyValue returns the port's current value boxed as any. See Value for the
// typed equivalent; both panic with domain.ErrNoValue if the port is empty.
func (p *Port[T]) AnyValue() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasValue {
		panic(domain.ErrNoValue)
	}
	return p.value
}

func (p *Port[T]) valueAny() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// applySetAny applies v synchronously, bypassing the diff queue. It is the
// required-output write path when a Port[T] serves as a node's output (the
// destination of Link, or a port passed in NodeSpec.Outputs).
func (p *Port[T]) applySetAny(v any) { p.doSet(v.(T)) }

// deferSetAny goes through Set, so it enqueues when a queue is attached and
// applies immediately otherwise.
func (p *Port[T]) deferSetAny(v any) { p.Set(v.(T)) }

func (p *Port[T]) attachConsumer(n *Node) {
	p.mu.Lock()
	p.consumers = append(p.consumers, n)
	p.mu.Unlock()
}

func (p *Port[T]) setOwner(n *Node) {
	p.mu.Lock()
	p.owner = n
	p.mu.Unlock()
}

// attachQueue wires the port to the diff queue that owns its deferred
// mutations (spec §3: "reference to the owning diff queue"). Called once,
// at creation time, by Graph.NewGraphPort/NewGraphPortWithValue.
func (p *Port[T]) attachQueue(q *diffqueue.Queue) {
	p.mu.Lock()
	p.queue = q
	p.mu.Unlock()
}

// adaptTo returns the port's current value converted to `to`, memoized per
// destination type until the port's value next changes (C2).
func (p *Port[T]) adaptTo(to reflect.Type, registry *adapt.Registry) (any, error) {
	from := p.ElemType()
	version := p.Version()
	if from == to {
		return p.valueAny(), nil
	}
	var convErr error
	v := p.adapters.Get(to, version, func() any {
		out, err := registry.Convert(from, to, p.valueAny())
		if err != nil {
			convErr = err
			return nil
		}
		return out
	})
	return v, convErr
}
