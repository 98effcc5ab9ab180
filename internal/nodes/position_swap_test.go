package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/domain"
)

// TestNewPositionSwapJudge_AveragesBothOrders confirms a judge biased
// toward whichever answer it sees first gets its bias canceled out: each
// answer is scored once in each position, and the combined score is their
// average.
func TestNewPositionSwapJudge_AveragesBothOrders(t *testing.T) {
	var calls int
	// biasedJudge always scores the first answer in the slice 1.0 and
	// every other answer 0.0 — pure positional bias, no content signal.
	biasedJudge := JudgeFn(func(_ context.Context, _ string, answers []domain.Answer) ([]domain.JudgeSummary, error) {
		calls++
		out := make([]domain.JudgeSummary, len(answers))
		for i := range answers {
			if i == 0 {
				out[i] = domain.JudgeSummary{Score: 1.0, Confidence: 0.9}
			} else {
				out[i] = domain.JudgeSummary{Score: 0.0, Confidence: 0.9}
			}
		}
		return out, nil
	})

	swapped := NewPositionSwapJudge(biasedJudge)
	answers := []domain.Answer{{ID: "a"}, {ID: "b"}}

	scores, err := swapped(context.Background(), "q", answers)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Equal(t, 2, calls, "must invoke the wrapped judge twice")
	assert.Equal(t, 0.5, scores[0].Score)
	assert.Equal(t, 0.5, scores[1].Score)
}

func TestNewPositionSwapJudge_SingleAnswerSkipsSecondPass(t *testing.T) {
	var calls int
	judge := JudgeFn(func(_ context.Context, _ string, answers []domain.Answer) ([]domain.JudgeSummary, error) {
		calls++
		return []domain.JudgeSummary{{Score: 0.7}}, nil
	})

	swapped := NewPositionSwapJudge(judge)
	scores, err := swapped(context.Background(), "q", []domain.Answer{{ID: "only"}})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0.7, scores[0].Score)
}

func TestNewPositionSwapJudge_PropagatesSecondPassError(t *testing.T) {
	calls := 0
	judge := JudgeFn(func(_ context.Context, _ string, answers []domain.Answer) ([]domain.JudgeSummary, error) {
		calls++
		if calls == 2 {
			return nil, assert.AnError
		}
		out := make([]domain.JudgeSummary, len(answers))
		return out, nil
	})

	swapped := NewPositionSwapJudge(judge)
	_, err := swapped(context.Background(), "q", []domain.Answer{{ID: "a"}, {ID: "b"}})
	assert.Error(t, err)
}
