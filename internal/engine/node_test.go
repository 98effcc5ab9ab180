package engine

import (
	"testing"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_PendIsIdempotent(t *testing.T) {
	n := newTestNode()
	n.state = domain.NodeDone
	n.pend()
	assert.Equal(t, domain.NodePending, n.State())
	n.pend()
	assert.Equal(t, domain.NodePending, n.State())
}

func TestNode_NotifyInputChangedArmsPendingAndChanged(t *testing.T) {
	n := newTestNode()
	n.notifyInputChanged()
	assert.Equal(t, domain.NodePending, n.State())
	assert.Equal(t, domain.InputChanged, n.inputState)
}

func TestNode_MultiInputReadyRequiresAll(t *testing.T) {
	g := newTestGraph()
	a := NewGraphPort[int](g, intEqual)
	b := NewGraphPort[int](g, intEqual)
	n, err := NewNode(g, NodeSpec{
		ID:          "sum",
		Fn:          func(x, y int) int { return x + y },
		Inputs:      []AnyPort{a, b},
		OutputNames: []string{"out"},
	})
	require.NoError(t, err)

	assert.False(t, n.Ready())
	a.Set(1)
	g.Drain()
	assert.False(t, n.Ready())
	b.Set(2)
	g.Drain()
	assert.True(t, n.Ready())
}

func TestNode_StructReturnFillsMultipleOutputs(t *testing.T) {
	type Result struct {
		Sum  int
		Diff int
	}
	g := newTestGraph()
	a := NewGraphPort[int](g, intEqual)
	b := NewGraphPort[int](g, intEqual)
	n, err := NewNode(g, NodeSpec{
		ID:          "sumdiff",
		Fn:          func(x, y int) Result { return Result{Sum: x + y, Diff: x - y} },
		Inputs:      []AnyPort{a, b},
		OutputNames: []string{"sum", "diff"},
	})
	require.NoError(t, err)

	a.Set(5)
	b.Set(3)
	g.Drain()
	n.run()

	require.Len(t, n.Outputs(), 2)
	assert.Equal(t, 8, n.Outputs()[0].valueAny())
	assert.Equal(t, 2, n.Outputs()[1].valueAny())
}

func TestNode_VoidReturnWritesNoRequiredOutputs(t *testing.T) {
	g := newTestGraph()
	a := NewGraphPort[int](g, intEqual)
	seen := 0
	n, err := NewNode(g, NodeSpec{
		ID:     "sink",
		Fn:     func(x int) { seen = x },
		Inputs: []AnyPort{a},
	})
	require.NoError(t, err)

	a.Set(9)
	g.Drain()
	n.run()
	assert.Equal(t, 9, seen)
	assert.Empty(t, n.Outputs())
}

func TestPort_AdaptToSameTypeReturnsValue(t *testing.T) {
	reg := adapt.NewRegistry()
	p := NewPort[int](intEqual)
	p.Set(4)

	v, err := p.adaptTo(p.ElemType(), reg)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}
