package nodes

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/nilgate/gate/internal/domain"
)

// PoolStrategy selects how a pooling node reduces per-answer judge scores to
// a single winning answer and aggregate score. The teacher carried three
// near-identical unit types (ArithmeticMeanUnit, MaxPoolUnit,
// MedianPoolUnit) that differed only in this one reduction step; collapsing
// them to a strategy parameter on one node constructor removes that
// duplication while keeping every behavior the teacher's Aggregate methods
// implement.
type PoolStrategy string

const (
	// PoolMax selects the candidate with the highest individual score and
	// reports that score as the aggregate — the teacher's MaxPoolUnit (also
	// what ArithmeticMeanUnit actually computed, despite its name; see
	// arithmetic_mean_unit.go's doc comment acknowledging this).
	PoolMax PoolStrategy = "max"
	// PoolMedian selects the candidate whose score is closest to the median
	// of all scores, reporting the median as the aggregate — the teacher's
	// MedianPoolUnit.
	PoolMedian PoolStrategy = "median"
)

// PoolConfig defines the configuration parameters shared by every pooling
// strategy.
type PoolConfig struct {
	// Strategy selects the reduction algorithm.
	Strategy PoolStrategy `yaml:"strategy" json:"strategy" validate:"required,oneof=max median"`
	// TieBreaker defines how to handle candidates tied at the winning
	// score (PoolMax) or equidistant from the median (PoolMedian).
	TieBreaker TieBreaker `yaml:"tie_breaker" json:"tie_breaker" validate:"required,oneof=first random error"`
	// MinScore sets the minimum acceptable aggregate score; a winner below
	// it is rejected with ErrBelowMinScore.
	MinScore float64 `yaml:"min_score" json:"min_score" validate:"min=0.0,max=1.0"`
	// RequireAllScores determines whether a mismatch between the answer and
	// score counts is an error (true) or silently truncated to the shorter
	// length (false).
	RequireAllScores bool `yaml:"require_all_scores" json:"require_all_scores"`
}

// DefaultPoolConfig returns sensible defaults: max-score pooling, first-wins
// tie-breaking, no minimum, requiring a score per answer.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Strategy: PoolMax, TieBreaker: TieFirst, MinScore: 0.0, RequireAllScores: true}
}

// NewPool builds the pooling node body: it reduces per-answer judge scores
// to a single domain.Verdict naming the winning answer and the aggregate
// score, using cfg.Strategy. Grounded on
// infrastructure/units/{arithmetic_mean,max_pool,median_pool}_unit.go's
// Execute/Aggregate methods, consolidated into one constructor.
func NewPool(name string, cfg PoolConfig) func(ctx context.Context, answers []domain.Answer, scores []domain.JudgeSummary) (*domain.Verdict, error) {
	return func(ctx context.Context, answers []domain.Answer, scores []domain.JudgeSummary) (*domain.Verdict, error) {
		if len(answers) == 0 {
			return nil, fmt.Errorf("no answers to aggregate")
		}
		numAnswers := len(answers)
		numScores := len(scores)
		if numScores != numAnswers {
			if cfg.RequireAllScores {
				return nil, fmt.Errorf("mismatch between answers (%d) and judge scores (%d)", numAnswers, numScores)
			}
			if numScores < numAnswers {
				numAnswers = numScores
			}
		}

		raw := make([]float64, numAnswers)
		candidates := make([]domain.Answer, numAnswers)
		for i := 0; i < numAnswers; i++ {
			raw[i] = scores[i].Score
			candidates[i] = answers[i]
		}
		for i, s := range raw {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return nil, fmt.Errorf("invalid score at index %d: %f", i, s)
			}
		}

		var winnerIdx int
		var aggregate float64
		var err error
		switch cfg.Strategy {
		case PoolMedian:
			winnerIdx, aggregate, err = poolMedian(raw, cfg.TieBreaker)
		default:
			winnerIdx, aggregate, err = poolMax(raw, cfg.TieBreaker)
		}
		if err != nil {
			return nil, fmt.Errorf("aggregation failed: %w", err)
		}
		if aggregate < cfg.MinScore {
			return nil, fmt.Errorf("%w: aggregate=%.3f, minimum=%.3f", ErrBelowMinScore, aggregate, cfg.MinScore)
		}

		winner := candidates[winnerIdx]
		return &domain.Verdict{
			ID:             fmt.Sprintf("%s_verdict", name),
			WinnerAnswer:   &winner,
			AggregateScore: aggregate,
		}, nil
	}
}

func poolMax(scores []float64, tieBreaker TieBreaker) (int, float64, error) {
	if len(scores) == 0 {
		return 0, 0, ErrNoScores
	}

	winnerIdx := 0
	maxScore := math.Inf(-1)
	var tied []int
	for i, s := range scores {
		if s > maxScore {
			maxScore = s
			winnerIdx = i
			tied = []int{i}
		} else if s == maxScore {
			tied = append(tied, i)
		}
	}

	if len(tied) > 1 {
		idx, err := breakTie(tied, tieBreaker, maxScore)
		if err != nil {
			return 0, 0, err
		}
		winnerIdx = idx
	}
	return winnerIdx, maxScore, nil
}

func poolMedian(scores []float64, tieBreaker TieBreaker) (int, float64, error) {
	if len(scores) == 0 {
		return 0, 0, ErrNoScores
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	n := len(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	bestDist := math.Inf(1)
	winnerIdx := 0
	var tied []int
	for i, s := range scores {
		dist := math.Abs(s - median)
		if dist < bestDist {
			bestDist = dist
			winnerIdx = i
			tied = []int{i}
		} else if dist == bestDist {
			tied = append(tied, i)
		}
	}

	if len(tied) > 1 {
		idx, err := breakTie(tied, tieBreaker, median)
		if err != nil {
			return 0, 0, err
		}
		winnerIdx = idx
	}
	return winnerIdx, median, nil
}

func breakTie(tied []int, tieBreaker TieBreaker, score float64) (int, error) {
	switch tieBreaker {
	case TieError:
		return 0, fmt.Errorf("%w: %d answers with score %.3f", ErrTie, len(tied), score)
	case TieRandom:
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tied))))
		if err != nil {
			return 0, fmt.Errorf("failed to generate random number for tie-breaking: %w", err)
		}
		return tied[n.Int64()], nil
	default:
		return tied[0], nil
	}
}

// NewPoolFromConfig adapts NewPool to the config.NodeFactory shape used by
// internal/config's NodeRegistry.
func NewPoolFromConfig(id string, params map[string]any) (any, error) {
	if id == "" {
		return nil, ErrEmptyNodeName
	}
	cfg := DefaultPoolConfig()
	if v, ok := params["strategy"].(string); ok {
		cfg.Strategy = PoolStrategy(v)
	}
	if v, ok := params["tie_breaker"].(string); ok {
		cfg.TieBreaker = TieBreaker(v)
	}
	if v, ok := params["min_score"].(float64); ok {
		cfg.MinScore = v
	}
	if v, ok := params["require_all_scores"].(bool); ok {
		cfg.RequireAllScores = v
	}
	if err := nodeValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return NewPool(id, cfg), nil
}
