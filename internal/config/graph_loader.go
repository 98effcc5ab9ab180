package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/engine"
)

// GraphLoader compiles a declarative YAML GraphConfig into a live
// engine.Graph, delegating port and node construction to the registries it
// was built with. Every failure path — unknown node type, malformed
// wiring, bad parameters, a cyclic declaration — surfaces as a
// *domain.ConfigError at load time, never a runtime panic discovered
// mid-commit (§7.1).
type GraphLoader struct {
	validator    *validator.Validate
	nodeRegistry *NodeRegistry
	portRegistry *PortTypeRegistry
}

// NewGraphLoader creates a loader that resolves node types through
// nodeRegistry and port types through portRegistry.
func NewGraphLoader(nodeRegistry *NodeRegistry, portRegistry *PortTypeRegistry) (*GraphLoader, error) {
	v := validator.New()
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return nil, fmt.Errorf("failed to register semver validator: %w", err)
	}
	return &GraphLoader{validator: v, nodeRegistry: nodeRegistry, portRegistry: portRegistry}, nil
}

// LoadFromFile loads and compiles a graph from a YAML file.
func (gl *GraphLoader) LoadFromFile(path string, registry *adapt.Registry) (*engine.Graph, map[string]engine.AnyPort, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return gl.Load(data, registry)
}

// LoadFromReader loads and compiles a graph from an io.Reader.
func (gl *GraphLoader) LoadFromReader(r io.Reader, registry *adapt.Registry) (*engine.Graph, map[string]engine.AnyPort, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data: %w", err)
	}
	return gl.Load(data, registry)
}

// Load parses, validates, and compiles graph configuration bytes into a
// live graph using registry for C2 input-adaptation lookups. It returns
// the graph alongside every port the config declared or a node produced,
// keyed by ID, so callers can read/write them after the graph is built.
func (gl *GraphLoader) Load(data []byte, registry *adapt.Registry) (*engine.Graph, map[string]engine.AnyPort, error) {
	cfg, err := gl.parseYAML(data)
	if err != nil {
		return nil, nil, err
	}
	if err := gl.validateConfig(cfg); err != nil {
		return nil, nil, err
	}
	return gl.buildGraph(cfg, registry)
}

// parseYAML unmarshals strict-mode YAML into a GraphConfig, failing on
// unknown fields so a configuration typo surfaces immediately rather than
// being silently ignored.
func (gl *GraphLoader) parseYAML(data []byte) (*GraphConfig, error) {
	var cfg GraphConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, domain.NewConfigError("graph", "YAML decode failed", err)
	}
	return &cfg, nil
}

// validateConfig runs struct-tag validation followed by the semantic
// checks struct tags can't express: global ID uniqueness, registered
// type names, reference integrity, and acyclic wiring.
func (gl *GraphLoader) validateConfig(cfg *GraphConfig) error {
	if err := gl.validator.Struct(cfg); err != nil {
		return domain.NewConfigError("graph", "struct validation failed", err)
	}
	return gl.validateSemantics(cfg)
}

func (gl *GraphLoader) validateSemantics(cfg *GraphConfig) error {
	portIDs := make(map[string]struct{}, len(cfg.Ports))
	for _, p := range cfg.Ports {
		if _, exists := portIDs[p.ID]; exists {
			return domain.NewConfigError(p.ID, "duplicate port ID", nil)
		}
		portIDs[p.ID] = struct{}{}
		if !gl.portRegistry.Has(p.Type) {
			return domain.NewConfigError(p.ID, fmt.Sprintf("unknown port type: %s", p.Type), nil)
		}
	}

	nodeIDs := make(map[string]struct{}, len(cfg.Nodes))
	produced := make(map[string]struct{}, len(cfg.Ports))
	for id := range portIDs {
		produced[id] = struct{}{}
	}

	for _, n := range cfg.Nodes {
		if _, exists := nodeIDs[n.ID]; exists {
			return domain.NewConfigError(n.ID, "duplicate node ID", nil)
		}
		nodeIDs[n.ID] = struct{}{}
		if !gl.nodeRegistry.Has(n.Type) {
			return domain.NewConfigError(n.ID, fmt.Sprintf("unknown node type: %s", n.Type), nil)
		}
		for _, out := range n.Outputs {
			produced[out] = struct{}{}
		}
		for _, out := range n.OptOutputs {
			produced[out] = struct{}{}
		}
	}

	for _, n := range cfg.Nodes {
		for _, in := range n.Inputs {
			if _, ok := produced[in]; !ok {
				return domain.NewConfigError(n.ID, fmt.Sprintf("input port %q is never declared or produced", in), nil)
			}
		}
	}

	return detectCycle(cfg)
}

// buildGraph instantiates every declared port, then every node in
// dependency order, wiring each node's inputs to already-built ports and
// recording its outputs for later nodes (or the caller) to reference.
func (gl *GraphLoader) buildGraph(cfg *GraphConfig, registry *adapt.Registry) (*engine.Graph, map[string]engine.AnyPort, error) {
	g := engine.NewGraph(registry)
	ports := make(map[string]engine.AnyPort, len(cfg.Ports)+len(cfg.Nodes))

	for _, p := range cfg.Ports {
		port, err := gl.portRegistry.Create(p.Type, g)
		if err != nil {
			return nil, nil, domain.NewConfigError(p.ID, "failed to create port", err)
		}
		ports[p.ID] = port
	}

	for _, n := range topoOrder(cfg) {
		if err := gl.buildNode(g, n, ports); err != nil {
			return nil, nil, err
		}
	}

	return g, ports, nil
}

func (gl *GraphLoader) buildNode(g *engine.Graph, n NodeConfig, ports map[string]engine.AnyPort) error {
	var params map[string]any
	if err := n.Parameters.Decode(&params); err != nil {
		return domain.NewConfigError(n.ID, "failed to decode parameters", err)
	}

	fn, err := gl.nodeRegistry.Create(n.Type, n.ID, params)
	if err != nil {
		return domain.NewConfigError(n.ID, "failed to create node", err)
	}

	inputs := make([]engine.AnyPort, len(n.Inputs))
	for i, id := range n.Inputs {
		port, ok := ports[id]
		if !ok {
			return domain.NewConfigError(n.ID, fmt.Sprintf("input port %q not found", id), nil)
		}
		inputs[i] = port
	}

	spec := engine.NodeSpec{
		ID:             n.ID,
		Fn:             fn,
		Inputs:         inputs,
		OutputNames:    n.Outputs,
		OptOutputNames: n.OptOutputs,
	}

	// If every declared output port already exists (pre-declared in
	// Ports), wire the node to write directly into them instead of
	// creating fresh node-owned ports — the config-driven equivalent of
	// engine.Link.
	if allPreDeclared(n.Outputs, ports) {
		outs := make([]engine.AnyPort, len(n.Outputs))
		for i, id := range n.Outputs {
			outs[i] = ports[id]
		}
		spec.Outputs = outs
	}

	node, err := engine.NewNode(g, spec)
	if err != nil {
		return err
	}

	for i, id := range n.Outputs {
		if _, exists := ports[id]; !exists {
			ports[id] = node.Outputs()[i]
		}
	}
	for i, id := range n.OptOutputs {
		ports[id] = node.OptOutputs()[i]
	}
	return nil
}

func allPreDeclared(ids []string, ports map[string]engine.AnyPort) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, ok := ports[id]; !ok {
			return false
		}
	}
	return true
}

// validateSemver validates that a string follows X.Y.Z semantic versioning.
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3
}
