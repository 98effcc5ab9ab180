package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilgate/gate/internal/domain"
)

func TestNewVerification_HighConfidenceSkipsHumanReview(t *testing.T) {
	llm := newStubLLM(`{"confidence": 0.95, "reasoning": "solid evaluation"}`)
	node, err := NewVerification("verify", llm, DefaultVerificationConfig())
	require.NoError(t, err)

	var outs VerificationOutputs
	answers := []domain.Answer{{ID: "a1", Content: "answer"}}
	scores := []domain.JudgeSummary{{Score: 0.7}}
	verdict, err := node(context.Background(), &outs, "q", answers, scores)
	require.NoError(t, err)
	assert.Nil(t, outs.NeedsHumanReview)
	assert.Equal(t, "a1", verdict.WinnerAnswer.ID)
}

func TestNewVerification_LowConfidenceFlagsHumanReview(t *testing.T) {
	llm := newStubLLM(`{"confidence": 0.3, "reasoning": "unclear", "issues": ["ambiguous question"]}`)
	node, err := NewVerification("verify", llm, DefaultVerificationConfig())
	require.NoError(t, err)

	var outs VerificationOutputs
	answers := []domain.Answer{{ID: "a1", Content: "answer"}}
	scores := []domain.JudgeSummary{{Score: 0.7}}
	_, err = node(context.Background(), &outs, "q", answers, scores)
	require.NoError(t, err)
	require.NotNil(t, outs.NeedsHumanReview)
	assert.True(t, *outs.NeedsHumanReview)
	require.NotNil(t, outs.Issues)
	assert.Equal(t, []string{"ambiguous question"}, *outs.Issues)
}

func TestNewVerification_RejectsInvalidJSON(t *testing.T) {
	llm := newStubLLM("not json")
	node, err := NewVerification("verify", llm, DefaultVerificationConfig())
	require.NoError(t, err)

	var outs VerificationOutputs
	_, err = node(context.Background(), &outs, "q", nil, nil)
	assert.Error(t, err)
}
