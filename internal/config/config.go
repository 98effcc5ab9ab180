// Package config implements the declarative YAML graph-definition format
// and the GraphLoader that compiles it into a live engine.Graph
// (SPEC_FULL.md's Configuration section). This is C8's configuration-time
// validation surface: an unknown node type, a malformed wire, or a bad
// parameter value is always a *domain.ConfigError surfaced here, never a
// runtime panic discovered mid-commit.
package config

import "gopkg.in/yaml.v3"

// GraphConfig defines the complete specification for a dataflow graph: its
// ports, the nodes wired between them, and descriptive metadata.
// Use GraphConfig to describe a graph declaratively rather than constructing
// it with engine.NewGraphPort/engine.NewNode calls in Go.
type GraphConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the graph.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Ports declares every independent port the graph owns, keyed by ID for
	// later reference from NodeConfig.Inputs/Outputs.
	Ports []PortConfig `yaml:"ports" validate:"dive"`
	// Nodes declares every node, by registered type name, and the port IDs
	// feeding its inputs and receiving its outputs.
	Nodes []NodeConfig `yaml:"nodes" validate:"required,min=1,dive"`
}

// Metadata provides descriptive information about a graph to support
// organization, discovery, and operational management.
type Metadata struct {
	// Name is the human-readable identifier for this graph.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains the graph's purpose for documentation.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels for filtering and grouping.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
}

// PortConfig declares a single independent port.
type PortConfig struct {
	// ID is the unique identifier used by NodeConfig.Inputs/Outputs to wire
	// this port to a node.
	ID string `yaml:"id" validate:"required,min=1,max=100"`
	// Type names a registered port element type (e.g. "string", "float64",
	// "verdict") resolved through a PortTypeRegistry at load time.
	Type string `yaml:"type" validate:"required"`
}

// NodeConfig declares a single node: its registered type, the port IDs
// feeding its declared input parameters in order, the port IDs receiving
// its required outputs in order, and type-specific parameters.
type NodeConfig struct {
	// ID is the unique identifier for this node within the graph.
	ID string `yaml:"id" validate:"required,min=1,max=100"`
	// Type selects the NodeFactory registered under this name.
	Type string `yaml:"type" validate:"required"`
	// Inputs lists the port IDs feeding the node's input parameters, in
	// declaration order.
	Inputs []string `yaml:"inputs" validate:"dive,required"`
	// Outputs lists the port IDs receiving the node's required outputs, in
	// declaration order. A port referenced here that isn't already declared
	// in Ports is implicitly created as a node-owned output.
	Outputs []string `yaml:"outputs" validate:"dive,required"`
	// OptOutputs lists the port IDs receiving the node's optional outputs,
	// matched by declaration order against the node's Outputs struct
	// fields.
	OptOutputs []string `yaml:"opt_outputs" validate:"dive,required"`
	// Parameters contains type-specific configuration as flexible YAML,
	// decoded and validated by the node type's factory.
	Parameters yaml.Node `yaml:"parameters"`
}
