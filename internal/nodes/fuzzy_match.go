package nodes

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/nilgate/gate/internal/domain"
)

// foldCaser is a package-level Unicode case folder, shared across calls to
// avoid allocating a new caser per node invocation.
var foldCaser = cases.Fold()

// FuzzyMatchConfig defines the configuration parameters for a fuzzy-match
// node: the matching algorithm, the minimum similarity threshold, and
// case-sensitivity.
type FuzzyMatchConfig struct {
	// Algorithm names the fuzzy matching algorithm. Only "levenshtein" is
	// currently supported.
	Algorithm string `yaml:"algorithm" json:"algorithm" validate:"required,oneof=levenshtein"`
	// Threshold is the minimum similarity score (0.0-1.0) for a match; raw
	// similarity below it is reported as 0.0.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"min=0.0,max=1.0"`
	// CaseSensitive controls case sensitivity during comparison.
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`
}

// DefaultFuzzyMatchConfig returns sensible defaults: levenshtein at an 0.8
// threshold, case-insensitive.
func DefaultFuzzyMatchConfig() FuzzyMatchConfig {
	return FuzzyMatchConfig{Algorithm: "levenshtein", Threshold: 0.8, CaseSensitive: false}
}

func (c FuzzyMatchConfig) prepare(s string) string {
	if !c.CaseSensitive {
		return foldCaser.String(s)
	}
	return s
}

func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(s1, s2)
	maxLen := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	sim := 1.0 - float64(distance)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return sim
}

// NewFuzzyMatch builds the fuzzy-match node body: a deterministic matcher
// scoring each candidate answer by normalized Levenshtein similarity to a
// single reference answer, zeroing any score below the configured
// threshold. Grounded on
// infrastructure/units/fuzzy_match_unit.go's Execute/calculateSimilarity.
func NewFuzzyMatch(cfg FuzzyMatchConfig) func(ctx context.Context, answers []domain.Answer, reference string) ([]domain.JudgeSummary, error) {
	return func(ctx context.Context, answers []domain.Answer, reference string) ([]domain.JudgeSummary, error) {
		if len(answers) == 0 {
			return nil, fmt.Errorf("no answers provided for fuzzy match evaluation")
		}

		preparedReference := cfg.prepare(reference)
		summaries := make([]domain.JudgeSummary, len(answers))
		for i, a := range answers {
			raw := similarity(cfg.prepare(a.Content), preparedReference)
			score := raw
			reasoning := fmt.Sprintf("Fuzzy match similarity: %.2f%%", score*100)
			if raw < cfg.Threshold {
				score = 0.0
				reasoning = fmt.Sprintf("No match (similarity %.2f%% below threshold %.2f%%)", raw*100, cfg.Threshold*100)
			}
			summaries[i] = domain.JudgeSummary{Score: score, Reasoning: reasoning, Confidence: 1.0}
		}
		return summaries, nil
	}
}

// NewFuzzyMatchFromConfig adapts NewFuzzyMatch to the config.NodeFactory
// shape used by internal/config's NodeRegistry.
func NewFuzzyMatchFromConfig(id string, params map[string]any) (any, error) {
	if id == "" {
		return nil, ErrEmptyNodeName
	}
	cfg := DefaultFuzzyMatchConfig()
	if v, ok := params["algorithm"].(string); ok {
		cfg.Algorithm = v
	}
	if v, ok := params["threshold"].(float64); ok {
		cfg.Threshold = v
	}
	if v, ok := params["case_sensitive"].(bool); ok {
		cfg.CaseSensitive = v
	}
	if err := nodeValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return NewFuzzyMatch(cfg), nil
}
