package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/domain"
)

func TestNewFuzzyMatch_ScoresBySimilarity(t *testing.T) {
	node := NewFuzzyMatch(DefaultFuzzyMatchConfig())

	answers := []domain.Answer{
		{Content: "Paris"},
		{Content: "completely unrelated text of similar length"},
	}
	scores, err := node(context.Background(), answers, "Paris")
	require.NoError(t, err)
	assert.Equal(t, 1.0, scores[0].Score)
	assert.Equal(t, 0.0, scores[1].Score, "similarity below threshold must report 0")
}

func TestNewFuzzyMatch_NearMissAboveThreshold(t *testing.T) {
	cfg := DefaultFuzzyMatchConfig()
	cfg.Threshold = 0.5
	node := NewFuzzyMatch(cfg)

	scores, err := node(context.Background(), []domain.Answer{{Content: "Paris"}}, "Parris")
	require.NoError(t, err)
	assert.Greater(t, scores[0].Score, 0.5)
}

func TestNewFuzzyMatchFromConfig_RejectsBadAlgorithm(t *testing.T) {
	_, err := NewFuzzyMatchFromConfig("fm1", map[string]any{"algorithm": "soundex"})
	assert.Error(t, err)
}
