package engine

import (
	"reflect"
	"sync"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/diffqueue"
	"github.com/nilgate/gate/internal/domain"
)

// dataPort is a node-owned output port whose element type is only known at
// node-registration time via reflect — the Go counterpart to the original's
// Data<T> edge type, which exists alongside Port<T> specifically for
// node-created ports. Equality uses reflect.DeepEqual directly (the
// original's Data<T> compares with the element's own operator== rather
// than a traits-based is_eq), since a node's declared return type has no
// caller-supplied equality function to thread through.
type dataPort struct {
	mu        sync.Mutex
	elemType  reflect.Type
	name      string
	state     domain.PortState
	value     reflect.Value
	hasValue  bool
	version   uint64
	owner     *Node
	consumers []*Node
	adapters  adapt.Cache
	queue     *diffqueue.Queue
}

func newDataPort(name string, elemType reflect.Type, owner *Node) *dataPort {
	return &dataPort{
		name:     name,
		elemType: elemType,
		state:    domain.PortPending,
		owner:    owner,
	}
}

func (p *dataPort) HasValue() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasValue
}

func (p *dataPort) State() domain.PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *dataPort) ElemType() reflect.Type { return p.elemType }

func (p *dataPort) Score() int { return p.owner.Score() }

func (p *dataPort) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// AnyValue returns the port's current value, panicking with
// domain.ErrNoValue if the port has never been written.
func (p *dataPort) AnyValue() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasValue {
		panic(domain.ErrNoValue)
	}
	return p.value.Interface()
}

func (p *dataPort) valueAny() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasValue {
		return nil
	}
	return p.value.Interface()
}

// applySetAny applies v in place, synchronously. This is the required-
// output write path (spec §4.3 "Output write rule"): a node's required
// outputs are compared and updated immediately when the node body returns,
// never deferred.
func (p *dataPort) applySetAny(v any) {
	rv := reflect.ValueOf(v)
	p.mu.Lock()
	if p.hasValue && reflect.DeepEqual(p.value.Interface(), v) {
		p.mu.Unlock()
		return
	}
	p.value = rv
	p.hasValue = true
	p.version++
	p.state = domain.PortStale
	consumers := append([]*Node(nil), p.consumers...)
	p.mu.Unlock()

	p.adapters.Invalidate()
	for _, c := range consumers {
		c.notifyInputChanged()
	}
}

// deferSetAny enqueues a diff applying v, rather than applying it in place.
// This is the optional-output write path (spec §4.3 "Optional outputs" /
// §4.6 "Deferred-feedback law"): any write into an optional output goes
// through the diff queue and is observed no earlier than the next commit
// cycle — the sole legal mechanism for a node to feed back into the graph.
// A port with no queue attached applies immediately, since there is nothing
// to defer to.
func (p *dataPort) deferSetAny(v any) {
	if p.queue != nil {
		p.queue.Push(func() { p.applySetAny(v) })
		return
	}
	p.applySetAny(v)
}

func (p *dataPort) attachConsumer(n *Node) {
	p.mu.Lock()
	p.consumers = append(p.consumers, n)
	p.mu.Unlock()
}

func (p *dataPort) setOwner(n *Node) {
	p.mu.Lock()
	p.owner = n
	p.mu.Unlock()
}

// attachQueue wires the port to the diff queue its owning graph maintains.
// Required outputs never use it (applySetAny is always synchronous);
// optional outputs use it via deferSetAny.
func (p *dataPort) attachQueue(q *diffqueue.Queue) {
	p.mu.Lock()
	p.queue = q
	p.mu.Unlock()
}

func (p *dataPort) adaptTo(to reflect.Type, registry *adapt.Registry) (any, error) {
	from := p.elemType
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
