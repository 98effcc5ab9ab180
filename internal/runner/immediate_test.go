package runner

import (
	"testing"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intEqual(a, b int) bool { return a == b }

func buildChain(t *testing.T) (*engine.Graph, *engine.Port[int], *engine.Node, *engine.Node) {
	t.Helper()
	g := engine.NewGraph(adapt.NewRegistry())
	in := engine.NewGraphPort[int](g, intEqual)

	n1, err := engine.NewNode(g, engine.NodeSpec{
		ID:          "double",
		Fn:          func(x int) int { return x * 2 },
		Inputs:      []engine.AnyPort{in},
		OutputNames: []string{"out"},
	})
	require.NoError(t, err)

	n2, err := engine.NewNode(g, engine.NodeSpec{
		ID:          "increment",
		Fn:          func(x int) int { return x + 1 },
		Inputs:      []engine.AnyPort{n1.Outputs()[0]},
		OutputNames: []string{"out"},
	})
	require.NoError(t, err)

	return g, in, n1, n2
}

func TestImmediateRunner_RunsSortedNodesInline(t *testing.T) {
	g, in, _, n2 := buildChain(t)
	in.Set(10)
	g.Drain()

	r := NewImmediateRunner()
	r.Run(func() []*engine.Node { return g.Sort() })

	require.True(t, n2.Outputs()[0].HasValue())
	assert.Equal(t, 21, n2.Outputs()[0].AnyValue())
}

func TestImmediateRunner_ReturnsBeforeCallerContinues(t *testing.T) {
	g, in, n1, _ := buildChain(t)
	in.Set(1)
	g.Drain()

	ran := false
	r := NewImmediateRunner()
	r.Run(func() []*engine.Node {
		ran = true
		return g.Sort()
	})

	assert.True(t, ran)
	assert.True(t, n1.Outputs()[0].HasValue())
}
