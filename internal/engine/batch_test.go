package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/adapt"
)

func TestBatch_AppliesWritesInOrder(t *testing.T) {
	p1 := NewPort[int](intEqual)
	p2 := NewPort[int](intEqual)

	b := NewBatch()
	BatchSet(b, p1, 1)
	BatchSet(b, p2, 2)
	assert.Equal(t, 2, b.Len())

	assert.False(t, p1.HasValue())
	assert.False(t, p2.HasValue())

	b.Apply()
	assert.Equal(t, 1, p1.Value())
	assert.Equal(t, 2, p2.Value())
}

func TestBatch_UnsetIsDeferredUntilApply(t *testing.T) {
	p := NewPort[int](intEqual)
	p.Set(7)

	b := NewBatch()
	BatchUnset(b, p)
	assert.True(t, p.HasValue(), "unset must not take effect before Apply")

	b.Apply()
	assert.False(t, p.HasValue())
}

// TestGraphBatch_WritesLandInOneDrainAsASingleDiff confirms a graph-owned
// batch's writes are invisible until Apply, and even then don't apply until
// the graph's queue is drained — both writes land together, in one diff.
func TestGraphBatch_WritesLandInOneDrainAsASingleDiff(t *testing.T) {
	g := NewGraph(adapt.NewRegistry())
	p := NewGraphPort[int](g, intEqual)
	q := NewGraphPort[int](g, intEqual)

	b := NewGraphBatch(g)
	BatchSet(b, p, 3)
	BatchSet(b, q, 4)
	assert.False(t, p.HasValue())
	assert.False(t, q.HasValue())

	b.Apply()
	assert.False(t, p.HasValue(), "Apply must not apply in place; it pushes one diff")
	assert.False(t, q.HasValue())

	g.Drain()
	require.True(t, p.HasValue())
	require.True(t, q.HasValue())
	assert.Equal(t, 3, p.Value())
	assert.Equal(t, 4, q.Value())
}
