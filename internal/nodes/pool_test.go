package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/domain"
)

func answersAndScores(scores ...float64) ([]domain.Answer, []domain.JudgeSummary) {
	answers := make([]domain.Answer, len(scores))
	summaries := make([]domain.JudgeSummary, len(scores))
	for i, s := range scores {
		answers[i] = domain.Answer{ID: string(rune('a' + i)), Content: string(rune('a' + i))}
		summaries[i] = domain.JudgeSummary{Score: s}
	}
	return answers, summaries
}

func TestNewPool_MaxStrategyPicksHighestScore(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.Strategy = PoolMax
	node := NewPool("pool", cfg)

	answers, scores := answersAndScores(0.2, 0.9, 0.5)
	verdict, err := node(context.Background(), answers, scores)
	require.NoError(t, err)
	assert.Equal(t, "b", verdict.WinnerAnswer.ID)
	assert.Equal(t, 0.9, verdict.AggregateScore)
}

func TestNewPool_MedianStrategyPicksClosestToMedian(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.Strategy = PoolMedian
	node := NewPool("pool", cfg)

	answers, scores := answersAndScores(0.1, 0.5, 0.9)
	verdict, err := node(context.Background(), answers, scores)
	require.NoError(t, err)
	assert.Equal(t, "b", verdict.WinnerAnswer.ID)
	assert.Equal(t, 0.5, verdict.AggregateScore)
}

func TestNewPool_TieErrorReturnsErrTie(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.TieBreaker = TieError
	node := NewPool("pool", cfg)

	answers, scores := answersAndScores(0.5, 0.5)
	_, err := node(context.Background(), answers, scores)
	assert.ErrorIs(t, err, ErrTie)
}

func TestNewPool_BelowMinScoreRejected(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.MinScore = 0.95
	node := NewPool("pool", cfg)

	answers, scores := answersAndScores(0.2, 0.9)
	_, err := node(context.Background(), answers, scores)
	assert.ErrorIs(t, err, ErrBelowMinScore)
}

func TestNewPool_RejectsEmptyAnswers(t *testing.T) {
	node := NewPool("pool", DefaultPoolConfig())
	_, err := node(context.Background(), nil, nil)
	assert.Error(t, err)
}
