package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/nilgate/gate/internal/domain"
)

var nodeValidate = validator.New()

// ExactMatchConfig controls string normalization behavior during exact
// matching. The zero value provides case-insensitive matching without
// whitespace trimming.
type ExactMatchConfig struct {
	// CaseSensitive controls case sensitivity during string comparison.
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`
	// TrimWhitespace controls leading/trailing whitespace normalization.
	TrimWhitespace bool `yaml:"trim_whitespace" json:"trim_whitespace"`
}

// DefaultExactMatchConfig returns production-ready defaults: case-insensitive
// matching with whitespace trimming enabled.
func DefaultExactMatchConfig() ExactMatchConfig {
	return ExactMatchConfig{CaseSensitive: false, TrimWhitespace: true}
}

func (c ExactMatchConfig) prepare(s string) string {
	if c.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	if !c.CaseSensitive {
		s = cases.Fold().String(s)
	}
	return s
}

// NewExactMatch builds the exact-match node body: a deterministic matcher
// assigning each candidate answer a binary score (1.0 exact match, 0.0
// otherwise) against a single reference answer. Grounded on
// infrastructure/units/exact_match_unit.go's Execute, adapted from
// domain.State get/with calls to typed port parameters.
func NewExactMatch(cfg ExactMatchConfig) func(ctx context.Context, answers []domain.Answer, reference string) ([]domain.JudgeSummary, error) {
	return func(ctx context.Context, answers []domain.Answer, reference string) ([]domain.JudgeSummary, error) {
		if len(answers) == 0 {
			return nil, fmt.Errorf("no answers provided for exact match evaluation")
		}

		preparedReference := cfg.prepare(reference)
		summaries := make([]domain.JudgeSummary, len(answers))
		for i, a := range answers {
			score := 0.0
			reasoning := "No exact match"
			if cfg.prepare(a.Content) == preparedReference {
				score = 1.0
				reasoning = "Exact match found"
			}
			summaries[i] = domain.JudgeSummary{Score: score, Reasoning: reasoning, Confidence: 1.0}
		}
		return summaries, nil
	}
}

// NewExactMatchFromConfig adapts NewExactMatch to the config.NodeFactory
// shape used by internal/config's NodeRegistry.
func NewExactMatchFromConfig(id string, params map[string]any) (any, error) {
	if id == "" {
		return nil, ErrEmptyNodeName
	}
	cfg := DefaultExactMatchConfig()
	if v, ok := params["case_sensitive"].(bool); ok {
		cfg.CaseSensitive = v
	}
	if v, ok := params["trim_whitespace"].(bool); ok {
		cfg.TrimWhitespace = v
	}
	return NewExactMatch(cfg), nil
}
