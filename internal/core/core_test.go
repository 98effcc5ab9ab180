package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/engine"
	"github.com/nilgate/gate/internal/runner"
)

func intEqual(a, b int) bool { return a == b }

func TestCore_PostDiffsApplyAtCommit(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	p := engine.NewGraphPort[int](g, intEqual)

	c := NewCore(g, runner.NewImmediateRunner())
	// Set itself already defers to the graph's queue, so it must be called
	// directly here: wrapping it in Post/Apply would push a second diff that
	// only gets drained at the *following* commit.
	p.Set(7)

	assert.False(t, p.HasValue(), "a Set must not apply before Commit")

	c.Commit(context.Background())
	require.True(t, p.HasValue())
	assert.Equal(t, 7, p.Value())
}

func TestCore_CommitAppliesDiffsBeforeRunningNodes(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	in := engine.NewGraphPort[int](g, intEqual)

	n, err := engine.NewNode(g, engine.NodeSpec{
		ID:          "double",
		Fn:          func(x int) int { return x * 2 },
		Inputs:      []engine.AnyPort{in},
		OutputNames: []string{"out"},
	})
	require.NoError(t, err)

	c := NewCore(g, runner.NewImmediateRunner())
	in.Set(5)
	c.Commit(context.Background())

	require.True(t, n.Outputs()[0].HasValue())
	assert.Equal(t, 10, n.Outputs()[0].AnyValue())
}

func TestCore_DeferredDiffWaitsForNextCycle(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	p := engine.NewGraphPort[int](g, intEqual)
	c := NewCore(g, runner.NewImmediateRunner())

	c.Commit(context.Background()) // nothing queued yet
	assert.False(t, p.HasValue())

	p.Set(1)
	assert.False(t, p.HasValue(), "Set must not apply before the next Commit")
	c.Commit(context.Background())
	require.True(t, p.HasValue())
}

func TestCore_PostGraphClosureDefersToNextCommit(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	c := NewCore(g, runner.NewImmediateRunner())

	var applied bool
	c.Post(func(got *engine.Graph) {
		assert.Same(t, g, got)
		applied = true
	})
	assert.False(t, applied, "a Post'd closure must not run before Commit")

	c.Commit(context.Background())
	assert.True(t, applied)
}

func TestCore_ApplyClosureDefersToNextCommit(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	c := NewCore(g, runner.NewImmediateRunner())

	var n int
	c.Apply(func() { n++ })
	c.Apply(func() { n++ })
	assert.Equal(t, 0, n)

	c.Commit(context.Background())
	assert.Equal(t, 2, n)
}

// TestCore_OptionalOutputFeedsBackOneCycleLater reproduces spec §9 Scenario
// 3: a node writes its optional output, but the write is only observable
// starting the *next* commit — a downstream consumer of the optional output
// runs exactly one cycle after the producer, never the same one.
func TestCore_OptionalOutputFeedsBackOneCycleLater(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	c := NewCore(g, runner.NewImmediateRunner())

	a := Port[int](c, intEqual)

	type fOpts struct{ Z *int }
	f, err := c.Node(engine.NodeSpec{
		ID: "f",
		Fn: func(outs *fOpts, v int) {
			if v%2 == 0 {
				z := v + 100
				outs.Z = &z
			}
		},
		Inputs:         []engine.AnyPort{a},
		OptOutputNames: []string{"z"},
	})
	require.NoError(t, err)

	var downstreamRuns int
	var lastSum int
	_, err = c.Node(engine.NodeSpec{
		ID:          "downstream",
		Fn:          func(z int) int { downstreamRuns++; lastSum = z; return z },
		Inputs:      []engine.AnyPort{f.OptOutputs()[0]},
		OutputNames: []string{"out"},
	})
	require.NoError(t, err)

	a.Set(0)
	c.Commit(context.Background()) // cycle 1: f runs, enqueues a write to z; z still unset
	assert.False(t, f.OptOutputs()[0].HasValue(), "optional output write must not be visible in the cycle it was produced")
	assert.Equal(t, 0, downstreamRuns)

	c.Commit(context.Background()) // cycle 2: diff drained; z = 100
	require.True(t, f.OptOutputs()[0].HasValue())
	assert.Equal(t, 100, f.OptOutputs()[0].AnyValue())
	assert.Equal(t, 1, downstreamRuns, "downstream must run exactly once, in the cycle after z becomes visible")
	assert.Equal(t, 100, lastSum)
}

// TestCore_BatchAppliesAtomicallyAcrossPorts reproduces spec §9 Scenario 5:
// a batch grouping writes to two ports is observed as a single atomic unit
// by a downstream node — even a Commit landing between the batch's opening
// and its Apply sees neither write, and the downstream node runs exactly
// once on the completed pair.
func TestCore_BatchAppliesAtomicallyAcrossPorts(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	c := NewCore(g, runner.NewImmediateRunner())

	p := PortWithValue[int](c, intEqual, 0)
	q := PortWithValue[int](c, intEqual, 0)

	var runs int
	var lastSum int
	s, err := c.Node(engine.NodeSpec{
		ID:          "s",
		Fn:          func(p, q int) int { runs++; lastSum = p + q; return p + q },
		Inputs:      []engine.AnyPort{p, q},
		OutputNames: []string{"out"},
	})
	require.NoError(t, err)

	c.Commit(context.Background()) // settle s at its initial p=0, q=0
	require.Equal(t, 1, runs)
	require.Equal(t, 0, lastSum)

	b := c.Batch()
	engine.BatchSet(b, p, 3)
	engine.BatchSet(b, q, 4)

	c.Commit(context.Background()) // nothing committed from the batch yet
	assert.Equal(t, 1, runs, "a Commit between BatchSet and Apply must not see either write")
	assert.Equal(t, 0, p.Value())
	assert.Equal(t, 0, q.Value())

	b.Apply()
	c.Commit(context.Background())

	require.Equal(t, 3, p.Value())
	require.Equal(t, 4, q.Value())
	require.True(t, s.Outputs()[0].HasValue())
	assert.Equal(t, 2, runs, "s must execute exactly once more, observing p and q together")
	assert.Equal(t, 7, lastSum)
}

func TestCore_SetRunnerSwapsDispatchStrategy(t *testing.T) {
	g := engine.NewGraph(adapt.NewRegistry())
	p := engine.NewGraphPort[int](g, intEqual)
	c := NewCore(g, runner.NewImmediateRunner())

	soft := runner.NewSoftBlockingRunner()
	c.SetRunner(soft)
	assert.Same(t, soft, c.Runner())

	p.Set(3)
	c.Commit(context.Background())

	require.Eventually(t, func() bool { return p.HasValue() }, time.Second, time.Millisecond)
	assert.Equal(t, 3, p.Value())
}
