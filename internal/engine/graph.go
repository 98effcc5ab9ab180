package engine

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/diffqueue"
	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/shape"
)

// Graph owns every node and independent port created against it, and
// produces the topologically-sorted node view a Runner dispatches over
// (spec §4.4). Nodes can only reference ports that already exist, so the
// graph is acyclic by construction — there is no retroactive edge
// addition the way a declaratively-configured graph (internal/config) has,
// which is where cycle detection actually has work to do.
//
// Graph also owns the diff queue every port it creates is attached to
// (spec §4's ownership summary: "the Core exclusively owns the Graph and
// the diff queue"; Core delegates port/node construction to Graph, so the
// queue instance lives here and Core simply references it).
type Graph struct {
	mu       sync.Mutex
	registry *adapt.Registry
	nodes    []*Node
	ports    []AnyPort
	needSort bool
	sorted   []*Node
	queue    diffqueue.Queue
}

// NewGraph creates an empty graph using registry for input-adaptation
// lookups (C2).
func NewGraph(registry *adapt.Registry) *Graph {
	return &Graph{registry: registry}
}

// Queue returns the diff queue every port created against g is attached to.
func (g *Graph) Queue() *diffqueue.Queue { return &g.queue }

// Drain applies every diff queued so far, in FIFO order (spec §4.6 commit
// step 2, in isolation from sorting/dispatch). Core.Commit calls the
// equivalent step as part of the full protocol; Drain exists for callers
// working directly against a Graph without a Core (tests, and the engine's
// own lower-level unit tests).
func (g *Graph) Drain() { g.queue.Flush()() }

// NewGraphPort creates an independent port owned by this graph, attached to
// the graph's diff queue so Set/Unset defer to the next drain (spec §3,
// §4.1).
func NewGraphPort[T any](g *Graph, equal func(a, b T) bool) *Port[T] {
	p := NewPort[T](equal)
	p.attachQueue(&g.queue)
	g.mu.Lock()
	g.ports = append(g.ports, p)
	g.mu.Unlock()
	return p
}

// NewGraphPortWithValue creates an independent port already holding a
// value, attached to the graph's diff queue.
func NewGraphPortWithValue[T any](g *Graph, equal func(a, b T) bool, v T) *Port[T] {
	p := NewPortWithValue[T](equal, v)
	p.attachQueue(&g.queue)
	g.mu.Lock()
	g.ports = append(g.ports, p)
	g.mu.Unlock()
	return p
}

// NodeSpec describes the node to be registered: its callable, the ports
// feeding its input parameters in order, and names for its required and
// optional outputs (used only to label the created ports; arity is taken
// from the classified Signature).
type NodeSpec struct {
	ID             string
	Fn             any
	Inputs         []AnyPort
	OutputNames    []string // required output port names; must match the callable's declared output count
	OptOutputNames []string // optional output port names; must match the optional-outputs struct's field count
	OnError        func(*domain.NodeExecutionError)

	// Outputs, if non-nil, supplies already-existing ports to write
	// required outputs into instead of creating fresh node-owned ones —
	// used by Link to forward values into a pre-existing destination port
	// rather than vend a new one. Must match reqCount in length when set.
	Outputs []AnyPort
}

// NewNode classifies fn's signature (C8), validates it against the
// provided inputs and output name counts, and registers a new node on the
// graph. Any mismatch — wrong input count, no registered conversion from an
// input port's type to the parameter type, wrong output-name count — is a
// *domain.ConfigError or *domain.ShapeError, always surfaced here at
// registration time rather than discovered mid-commit (§7.1).
func NewNode(g *Graph, spec NodeSpec) (*Node, error) {
	sig, err := shape.Classify(spec.Fn)
	if err != nil {
		return nil, err
	}

	if len(spec.Inputs) != len(sig.InputTypes) {
		return nil, domain.NewConfigError(spec.ID,
			fmt.Sprintf("callable declares %d input parameters, got %d input ports",
				len(sig.InputTypes), len(spec.Inputs)), nil)
	}
	for i, in := range spec.Inputs {
		if err := shape.ValidateElementType(in.ElemType()); err != nil {
			return nil, err
		}
		if !g.registry.CanConvert(in.ElemType(), sig.InputTypes[i]) {
			return nil, domain.NewConfigError(spec.ID,
				fmt.Sprintf("input %d: no conversion from %s to %s",
					i, in.ElemType(), sig.InputTypes[i]), nil)
		}
	}

	reqCount := sig.NumRequiredOutputs()
	if spec.Outputs == nil && len(spec.OutputNames) != reqCount {
		return nil, domain.NewConfigError(spec.ID,
			fmt.Sprintf("callable declares %d required outputs, got %d output names",
				reqCount, len(spec.OutputNames)), nil)
	}

	optCount := 0
	if sig.OptOutputsType != nil {
		optCount = countExportedFields(sig.OptOutputsType)
	}
	if len(spec.OptOutputNames) != optCount {
		return nil, domain.NewConfigError(spec.ID,
			fmt.Sprintf("callable declares %d optional outputs, got %d optional output names",
				optCount, len(spec.OptOutputNames)), nil)
	}

	score := 1
	for _, in := range spec.Inputs {
		if s := in.Score(); s+1 > score {
			score = s + 1
		}
	}

	n := &Node{
		id:         spec.ID,
		state:      domain.NodePending,
		inputState: domain.InputChanged,
		score:      score,
		sig:        sig,
		fn:         reflect.ValueOf(spec.Fn),
		registry:   g.registry,
		inputs:     spec.Inputs,
		onError:    spec.OnError,
	}

	if spec.Outputs != nil {
		if len(spec.Outputs) != reqCount {
			return nil, domain.NewConfigError(spec.ID,
				fmt.Sprintf("callable declares %d required outputs, got %d output ports",
					reqCount, len(spec.Outputs)), nil)
		}
		n.outputs = spec.Outputs
		for _, out := range n.outputs {
			out.setOwner(n)
		}
	} else {
		n.outputs = make([]AnyPort, reqCount)
		for i := 0; i < reqCount; i++ {
			out := newDataPort(spec.OutputNames[i], requiredOutputType(sig, i), n)
			out.attachQueue(&g.queue)
			n.outputs[i] = out
		}
	}
	n.optOutputs = make([]AnyPort, optCount)
	for i := 0; i < optCount; i++ {
		opt := newDataPort(spec.OptOutputNames[i], optOutputType(sig.OptOutputsType, i), n)
		opt.attachQueue(&g.queue)
		n.optOutputs[i] = opt
	}

	for _, in := range spec.Inputs {
		in.attachConsumer(n)
	}

	g.mu.Lock()
	g.nodes = append(g.nodes, n)
	g.needSort = true
	g.mu.Unlock()

	return n, nil
}

func countExportedFields(t reflect.Type) int {
	n := 0
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			n++
		}
	}
	return n
}

func requiredOutputType(sig *shape.Signature, idx int) reflect.Type {
	if sig.ReturnKind == shape.ReturnMono {
		return sig.ReqOutputType
	}
	return exportedFieldType(sig.ReqOutputType, idx)
}

func optOutputType(optOutputsType reflect.Type, idx int) reflect.Type {
	return exportedFieldType(optOutputsType, idx).Elem() // unwrap the pointer
}

func exportedFieldType(t reflect.Type, idx int) reflect.Type {
	count := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if count == idx {
			return f.Type
		}
		count++
	}
	panic("exportedFieldType: index out of range")
}

// Link creates a trivial one-input node that copies every value from a
// source port of type FROM to a destination port of type TO, converting
// through the registry if the types differ. It's the Go shape of the
// original's Graph::link — a standing subscription rather than a one-time
// copy.
func Link[TO, FROM any](g *Graph, to *Port[TO], from *Port[FROM]) (*Node, error) {
	return NewNode(g, NodeSpec{
		ID:      fmt.Sprintf("link<%T<-%T>", *new(TO), *new(FROM)),
		Fn:      func(v TO) TO { return v },
		Inputs:  []AnyPort{from},
		Outputs: []AnyPort{to},
	})
}

// Remove detaches a node or independent port from the graph. Removing a
// node takes it out of the graph's node list and sort order; its input
// ports keep it in their consumer lists. Removing a dependent (node-owned)
// port directly is rejected with domain.ErrDependentPort — it can only be
// released by removing its owning node (§9 Open Question resolution). A
// handle the graph does not own yields domain.ErrUnknownHandle.
func (g *Graph) Remove(handle any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch h := handle.(type) {
	case *Node:
		idx := indexOfNode(g.nodes, h)
		if idx < 0 {
			return domain.ErrUnknownHandle
		}
		g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
		g.needSort = true
		return nil
	default:
		idx := indexOfPort(g.ports, handle)
		if idx < 0 {
			if _, ok := handle.(*dataPort); ok {
				return domain.ErrDependentPort
			}
			return domain.ErrUnknownHandle
		}
		g.ports = append(g.ports[:idx], g.ports[idx+1:]...)
		return nil
	}
}

func indexOfNode(nodes []*Node, n *Node) int {
	for i, existing := range nodes {
		if existing == n {
			return i
		}
	}
	return -1
}

func indexOfPort(ports []AnyPort, handle any) int {
	for i, p := range ports {
		if any(p) == handle {
			return i
		}
	}
	return -1
}

// Clear removes every node and independent port.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = nil
	g.ports = nil
	g.sorted = nil
	g.needSort = false
}

// Sort returns every owned node ordered so that a node always appears after
// every node that feeds one of its inputs, re-sorting only if a node was
// added or removed since the last call (mirroring the original's
// need_to_sort guard).
func (g *Graph) Sort() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.needSort {
		sorted := append([]*Node(nil), g.nodes...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Score() < sorted[j].Score()
		})
		g.sorted = sorted
		g.needSort = false
	}
	return g.sorted
}
