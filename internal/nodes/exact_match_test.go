package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/domain"
)

func TestNewExactMatch_ScoresExactAndNonMatches(t *testing.T) {
	node := NewExactMatch(DefaultExactMatchConfig())

	answers := []domain.Answer{
		{ID: "a1", Content: "  Paris  "},
		{ID: "a2", Content: "London"},
	}
	scores, err := node(context.Background(), answers, "paris")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 1.0, scores[0].Score)
	assert.Equal(t, 0.0, scores[1].Score)
}

func TestNewExactMatch_CaseSensitiveRejectsCaseDifference(t *testing.T) {
	cfg := DefaultExactMatchConfig()
	cfg.CaseSensitive = true
	node := NewExactMatch(cfg)

	scores, err := node(context.Background(), []domain.Answer{{Content: "Paris"}}, "paris")
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores[0].Score)
}

func TestNewExactMatch_RejectsEmptyAnswers(t *testing.T) {
	node := NewExactMatch(DefaultExactMatchConfig())
	_, err := node(context.Background(), nil, "paris")
	assert.Error(t, err)
}

func TestNewExactMatchFromConfig_AppliesOverrides(t *testing.T) {
	fn, err := NewExactMatchFromConfig("em1", map[string]any{"case_sensitive": true})
	require.NoError(t, err)
	node := fn.(func(context.Context, []domain.Answer, string) ([]domain.JudgeSummary, error))
	scores, err := node(context.Background(), []domain.Answer{{Content: "Paris"}}, "paris")
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores[0].Score)
}
