package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/shape"
)

// Node wraps a registered callable and its attached input/output ports
// (spec §4.3). A node's body runs at most once per commit cycle, and only
// if it is both ready (every input holds a value) and at least one input
// changed since its last run — the minimality invariant.
type Node struct {
	mu         sync.Mutex
	id         string
	state      domain.NodeState
	inputState domain.InputState
	score      int

	sig      *shape.Signature
	fn       reflect.Value
	registry *adapt.Registry

	inputs     []AnyPort
	outputs    []AnyPort // required outputs, in declaration order
	optOutputs []AnyPort // optional outputs, in declaration order

	onError func(*domain.NodeExecutionError)
}

// ID returns the node's registration identifier.
func (n *Node) ID() string { return n.id }

// Score returns the node's topological ordering key, assigned once at
// construction as 1 + max(inputs' Score()) — the same incremental
// scheme as the original's Node::score(), used by Graph.Sort in place of
// a full topological re-walk on every commit.
func (n *Node) Score() int { return n.score }

// State reports whether the node still owes an execution this cycle.
func (n *Node) State() domain.NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Outputs returns the node's required output ports, for wiring as other
// nodes' inputs or for direct reads once a cycle has committed.
func (n *Node) Outputs() []AnyPort { return n.outputs }

// OptOutputs returns the node's optional output ports.
func (n *Node) OptOutputs() []AnyPort { return n.optOutputs }

// Ready reports whether every input port is Stale and holds a value — the
// AND-over-inputs readiness check (spec §4.3).
func (n *Node) Ready() bool {
	for _, in := range n.inputs {
		if in.State() != domain.PortStale || !in.HasValue() {
			return false
		}
	}
	return true
}

// pend marks the node Pending. It is idempotent and does not cascade
// further: a node becoming Pending doesn't itself change any port value,
// so there is nothing for it to propagate until it actually runs and
// writes outputs.
func (n *Node) pend() {
	n.mu.Lock()
	n.state = domain.NodePending
	n.mu.Unlock()
}

// notifyInputChanged is attached as the consumer callback on every input
// port: it marks the node's input state Changed and re-arms it as Pending,
// even if the node already ran this cycle — a later diff changing an
// upstream value must be picked up on the *next* commit, not silently
// dropped.
func (n *Node) notifyInputChanged() {
	n.mu.Lock()
	n.inputState = domain.InputChanged
	n.mu.Unlock()
	n.pend()
}

// Run is the exported entry point a Runner calls once per dispatch pass a
// node is eligible for. See run for the gating semantics.
func (n *Node) Run() { n.run() }

// run executes the node's body if, and only if, it is Pending, Ready, and
// its input state is Changed. Otherwise it is marked Done without running
// — a ready-but-unchanged node still counts as handled for this cycle
// (minimality), and a not-ready node is left Pending for a later pass once
// its remaining inputs arrive. Called by a Runner, once per node per
// dispatch pass it's eligible for.
func (n *Node) run() {
	n.mu.Lock()
	if n.state != domain.NodePending {
		n.mu.Unlock()
		return
	}
	if !n.readyLocked() {
		n.mu.Unlock()
		return
	}
	shouldExec := n.inputState == domain.InputChanged
	n.mu.Unlock()

	if shouldExec {
		n.exec()
	}

	n.mu.Lock()
	n.state = domain.NodeDone
	n.inputState = domain.InputStale
	n.mu.Unlock()
}

func (n *Node) readyLocked() bool {
	n.mu.Unlock()
	ready := n.Ready()
	n.mu.Lock()
	return ready
}

// exec invokes the node's callable via reflect, assembling its arguments
// from the classified Signature and writing results back to the node's
// output ports. A panic in the callable is recovered here and wrapped into
// a *domain.NodeExecutionError rather than propagated — the node still
// finishes this cycle as Done with its prior output values intact (§7.3).
func (n *Node) exec() {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			n.reportError(domain.NewNodeExecutionError(n.id, err, true))
		}
	}()

	args := make([]reflect.Value, 0, 2+len(n.inputs))
	if n.sig.HasCoreArg {
		args = append(args, reflect.ValueOf(context.Background()))
	}

	var optOutPtr reflect.Value
	hasOptOut := n.sig.OptOutputsType != nil
	if hasOptOut {
		optOutPtr = reflect.New(n.sig.OptOutputsType)
		args = append(args, optOutPtr)
	}

	for i, in := range n.inputs {
		v, err := in.adaptTo(n.sig.InputTypes[i], n.registry)
		if err != nil {
			panic(err)
		}
		args = append(args, reflect.ValueOf(v))
	}

	results := n.fn.Call(args)

	if n.sig.ReturnsError {
		last := len(results) - 1
		if errVal := results[last]; !errVal.IsNil() {
			n.reportError(domain.NewNodeExecutionError(n.id, errVal.Interface().(error), false))
			if hasOptOut {
				n.writeOptOutputs(optOutPtr.Elem())
			}
			return
		}
		results = results[:last]
	}

	n.writeRequiredOutputs(results)
	if hasOptOut {
		n.writeOptOutputs(optOutPtr.Elem())
	}
}

func (n *Node) reportError(err *domain.NodeExecutionError) {
	if n.onError != nil {
		n.onError(err)
	}
}

func (n *Node) writeRequiredOutputs(results []reflect.Value) {
	switch n.sig.ReturnKind {
	case shape.ReturnVoid:
		return
	case shape.ReturnMono:
		n.outputs[0].applySetAny(results[0].Interface())
	case shape.ReturnStruct:
		structVal := results[0]
		idx := 0
		for i := 0; i < structVal.NumField(); i++ {
			if !structVal.Type().Field(i).IsExported() {
				continue
			}
			n.outputs[idx].applySetAny(structVal.Field(i).Interface())
			idx++
		}
	}
}

// writeOptOutputs enqueues a deferred write for each non-nil pointer field
// of the optional-outputs struct. A nil field means the node chose not to
// produce that optional output this cycle — it is simply left untouched.
// Per spec §4.3/§4.6, an optional output is the sole legal feedback
// mechanism into the graph, so its write is never applied in place: it
// lands on the diff queue and is observed no earlier than next cycle.
func (n *Node) writeOptOutputs(optOutVal reflect.Value) {
	idx := 0
	for i := 0; i < optOutVal.NumField(); i++ {
		f := optOutVal.Type().Field(i)
		if !f.IsExported() {
			continue
		}
		fv := optOutVal.Field(i)
		if !fv.IsNil() {
			n.optOutputs[idx].deferSetAny(fv.Elem().Interface())
		}
		idx++
	}
}
