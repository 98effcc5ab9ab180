package config

import (
	"fmt"
	"sync"

	"github.com/nilgate/gate/internal/engine"
)

// PortFactory creates an independent port of some fixed element type,
// owned by g.
type PortFactory func(g *engine.Graph) engine.AnyPort

// PortTypeRegistry maps a YAML-declared port type name to the factory that
// creates it. Go generics can't be instantiated from a runtime string, so
// each supported element type needs an explicit registration closing over
// its own type parameter — the same shape as internal/application's
// FactoryFunc registry, one level up (types, not units).
type PortTypeRegistry struct {
	mu        sync.RWMutex
	factories map[string]PortFactory
}

// NewPortTypeRegistry creates an empty port-type registry.
func NewPortTypeRegistry() *PortTypeRegistry {
	return &PortTypeRegistry{factories: make(map[string]PortFactory)}
}

// Register adds a factory for a port type name. Panics if the name is
// already registered — a duplicate registration is a programming error
// that should fail fast during initialization, not surface as a
// configuration-time error for an unrelated graph.
func (r *PortTypeRegistry) Register(name string, factory PortFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("port type %q already registered", name))
	}
	r.factories[name] = factory
}

// Create instantiates a port of the named type, owned by g.
func (r *PortTypeRegistry) Create(name string, g *engine.Graph) (engine.AnyPort, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown port type: %s", name)
	}
	return factory(g), nil
}

// Has reports whether name is a registered port type.
func (r *PortTypeRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// RegisterComparablePortType registers a port type whose element type uses
// Go's built-in `==` for equality — suitable for every primitive and any
// comparable struct the graph wires through YAML.
func RegisterComparablePortType[T comparable](r *PortTypeRegistry, name string) {
	r.Register(name, func(g *engine.Graph) engine.AnyPort {
		return engine.NewGraphPort[T](g, func(a, b T) bool { return a == b })
	})
}

// RegisterBuiltinPortTypes registers the primitive port types every graph
// definition can reference out of the box: string, int, int64, float64,
// and bool. Node types needing richer element types (domain.Verdict and
// similar) register their own via RegisterComparablePortType.
func RegisterBuiltinPortTypes(r *PortTypeRegistry) {
	RegisterComparablePortType[string](r, "string")
	RegisterComparablePortType[int](r, "int")
	RegisterComparablePortType[int64](r, "int64")
	RegisterComparablePortType[float64](r, "float64")
	RegisterComparablePortType[bool](r, "bool")
}

// NodeFactory builds the Go callable a node of this type registers with
// engine.NewNode, from its declared ID and decoded YAML parameters. The
// callable's own signature (classified by shape.Classify at registration
// time) determines its input/output arity; the factory's job is only to
// close over id and params.
type NodeFactory func(id string, params map[string]any) (fn any, err error)

// NodeRegistry maps a YAML-declared node type name to the factory that
// builds its callable — the Go shape of internal/application's unit
// Registry, one level down (node callables, not ports.Unit wrappers).
type NodeRegistry struct {
	mu        sync.RWMutex
	factories map[string]NodeFactory
}

// NewNodeRegistry creates an empty node-type registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{factories: make(map[string]NodeFactory)}
}

// Register adds a factory for a node type name. Panics on a duplicate
// registration, for the same reason as PortTypeRegistry.Register.
func (r *NodeRegistry) Register(nodeType string, factory NodeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[nodeType]; exists {
		panic(fmt.Sprintf("node type %q already registered", nodeType))
	}
	r.factories[nodeType] = factory
}

// Create builds the callable for a node of the given type and ID.
func (r *NodeRegistry) Create(nodeType, id string, params map[string]any) (any, error) {
	r.mu.RLock()
	factory, ok := r.factories[nodeType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	return factory(id, params)
}

// Has reports whether nodeType is registered.
func (r *NodeRegistry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[nodeType]
	return ok
}

// SupportedTypes returns every registered node type name.
func (r *NodeRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}
