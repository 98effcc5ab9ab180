package nodes

import (
	"context"
	"fmt"
	"slices"

	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/ports"
)

// JudgeFn is the shape NewScoreJudge (and any other scoring node) returns:
// one JudgeSummary per candidate answer, in the same order as answers.
type JudgeFn func(ctx context.Context, question string, answers []domain.Answer) ([]domain.JudgeSummary, error)

// NewPositionSwapJudge wraps judge to mitigate positional bias: an LLM judge
// scoring a list of candidate answers can favor whichever position an
// answer happens to occupy. The wrapped judge runs twice per call — once
// against answers as given, once against a reversed copy — and the two
// runs' scores for the same answer are averaged. Grounded on
// infrastructure/middleware/position_swap_middleware.go's Execute/
// combineScores, reworked from a ports.Unit-wrapping middleware into a
// decorator over a score-judge-shaped func, consistent with this package's
// node-body-is-its-signature model.
func NewPositionSwapJudge(judge JudgeFn) JudgeFn {
	return func(ctx context.Context, question string, answers []domain.Answer) ([]domain.JudgeSummary, error) {
		if len(answers) < 2 {
			return judge(ctx, question, answers)
		}

		firstPass, err := judge(ctx, question, answers)
		if err != nil {
			return nil, fmt.Errorf("position swap: first pass: %w", err)
		}
		if len(firstPass) != len(answers) {
			return nil, fmt.Errorf("position swap: judge returned %d scores for %d answers", len(firstPass), len(answers))
		}

		reversed := make([]domain.Answer, len(answers))
		copy(reversed, answers)
		slices.Reverse(reversed)

		secondPass, err := judge(ctx, question, reversed)
		if err != nil {
			return nil, fmt.Errorf("position swap: reversed pass: %w", err)
		}
		if len(secondPass) != len(answers) {
			return nil, fmt.Errorf("position swap: judge returned %d scores for %d reversed answers", len(secondPass), len(answers))
		}

		return combinePositionSwapScores(firstPass, secondPass), nil
	}
}

// combinePositionSwapScores averages each answer's original-order score
// with its reversed-order counterpart, mapping the reversed run's i-th
// result back to original index len(secondPass)-1-i.
func combinePositionSwapScores(firstPass, secondPass []domain.JudgeSummary) []domain.JudgeSummary {
	n := len(firstPass)
	combined := make([]domain.JudgeSummary, n)
	for i := 0; i < n; i++ {
		first := firstPass[i]
		second := secondPass[n-1-i]
		combined[i] = domain.JudgeSummary{
			Score:      (first.Score + second.Score) / 2.0,
			Confidence: (first.Confidence + second.Confidence) / 2.0,
			Reasoning: fmt.Sprintf("position swap: (%.3f + %.3f) / 2 = %.3f",
				first.Score, second.Score, (first.Score+second.Score)/2.0),
		}
	}
	return combined
}

// NewPositionSwapJudgeFromConfig wraps NewScoreJudgeFromConfig's factory so
// "score_judge_position_swap" is configurable as an ordinary node type
// through internal/config's NodeRegistry, without the indirection the
// teacher needed (CreatePositionSwapMiddleware took a unitFactory callback
// to avoid an import cycle between infrastructure/middleware and the unit
// registry; nodes already imports ports directly, so no such cycle exists
// here).
func NewPositionSwapJudgeFromConfig(llm ports.LLMClient) func(id string, params map[string]any) (any, error) {
	inner := NewScoreJudgeFromConfig(llm)
	return func(id string, params map[string]any) (any, error) {
		fn, err := inner(id, params)
		if err != nil {
			return nil, err
		}
		judge := fn.(func(ctx context.Context, question string, answers []domain.Answer) ([]domain.JudgeSummary, error))
		return NewPositionSwapJudge(judge), nil
	}
}
