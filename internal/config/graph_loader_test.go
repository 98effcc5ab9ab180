package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/domain"
)

func testLoader(t *testing.T) *GraphLoader {
	t.Helper()
	nodes := NewNodeRegistry()
	nodes.Register("double", func(id string, params map[string]any) (any, error) {
		return func(x int) int { return x * 2 }, nil
	})
	nodes.Register("add", func(id string, params map[string]any) (any, error) {
		return func(a, b int) int { return a + b }, nil
	})

	ports := NewPortTypeRegistry()
	RegisterBuiltinPortTypes(ports)

	gl, err := NewGraphLoader(nodes, ports)
	require.NoError(t, err)
	return gl
}

const validYAML = `
version: "1.0.0"
metadata:
  name: test-graph
ports:
  - id: in
    type: int
nodes:
  - id: doubler
    type: double
    inputs: [in]
    outputs: [doubled]
`

func TestGraphLoader_LoadsValidConfig(t *testing.T) {
	gl := testLoader(t)
	g, ports, err := gl.Load([]byte(validYAML), adapt.NewRegistry())
	require.NoError(t, err)
	require.Contains(t, ports, "in")
	require.Contains(t, ports, "doubled")

	in := ports["in"]
	assert.False(t, in.HasValue())
	_ = g
}

func TestGraphLoader_RejectsUnknownNodeType(t *testing.T) {
	gl := testLoader(t)
	yamlSrc := `
version: "1.0.0"
metadata:
  name: bad
ports:
  - id: in
    type: int
nodes:
  - id: n1
    type: nonexistent
    inputs: [in]
    outputs: [out]
`
	_, _, err := gl.Load([]byte(yamlSrc), adapt.NewRegistry())
	require.Error(t, err)
	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGraphLoader_RejectsUnknownPortType(t *testing.T) {
	gl := testLoader(t)
	yamlSrc := `
version: "1.0.0"
metadata:
  name: bad
ports:
  - id: in
    type: nonexistent
nodes:
  - id: n1
    type: double
    inputs: [in]
    outputs: [out]
`
	_, _, err := gl.Load([]byte(yamlSrc), adapt.NewRegistry())
	require.Error(t, err)
}

func TestGraphLoader_RejectsCyclicWiring(t *testing.T) {
	gl := testLoader(t)
	yamlSrc := `
version: "1.0.0"
metadata:
  name: cyclic
ports: []
nodes:
  - id: a
    type: double
    inputs: [p2]
    outputs: [p1]
  - id: b
    type: double
    inputs: [p1]
    outputs: [p2]
`
	_, _, err := gl.Load([]byte(yamlSrc), adapt.NewRegistry())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCycle)
}

func TestGraphLoader_BuildsNodesOutOfDeclarationOrder(t *testing.T) {
	gl := testLoader(t)
	yamlSrc := `
version: "1.0.0"
metadata:
  name: reordered
ports:
  - id: in
    type: int
nodes:
  - id: second
    type: double
    inputs: [first_out]
    outputs: [final]
  - id: first
    type: double
    inputs: [in]
    outputs: [first_out]
`
	_, ports, err := gl.Load([]byte(yamlSrc), adapt.NewRegistry())
	require.NoError(t, err)
	require.Contains(t, ports, "final")
}

func TestGraphLoader_RejectsMissingInputPort(t *testing.T) {
	gl := testLoader(t)
	yamlSrc := `
version: "1.0.0"
metadata:
  name: bad
ports: []
nodes:
  - id: n1
    type: double
    inputs: [ghost]
    outputs: [out]
`
	_, _, err := gl.Load([]byte(yamlSrc), adapt.NewRegistry())
	require.Error(t, err)
}
