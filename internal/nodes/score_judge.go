package nodes

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/ports"
)

// Defaults for ScoreJudgeConfig, mirroring
// infrastructure/units/score_judge_unit.go's package constants.
const (
	DefaultJudgeMaxConcurrency = 5
	DefaultJudgeMaxTokens      = 256
	DefaultJudgeTemperature    = 0.0
)

// ScoreScale is a parsed "min-max" scoring range used to normalize an LLM's
// raw numeric score into the [0.0, 1.0] band every domain.JudgeSummary
// reports. Grounded on
// infrastructure/units/score_judge_unit.go's ScoreScale/ParseScoreScale.
type ScoreScale struct {
	Min float64
	Max float64
}

// ParseScoreScale parses a "min-max" string (e.g. "1-10", "0.0-1.0",
// "-5-10") into a ScoreScale.
func ParseScoreScale(s string) (ScoreScale, error) {
	idx := strings.Index(s[1:], "-")
	if idx < 0 {
		return ScoreScale{}, fmt.Errorf("score scale must be in format 'min-max', got: %s", s)
	}
	idx++ // account for the skipped leading byte

	minPart, maxPart := s[:idx], s[idx+1:]
	minVal, err := strconv.ParseFloat(minPart, 64)
	if err != nil {
		return ScoreScale{}, fmt.Errorf("score scale must be in format 'min-max', got: %s", s)
	}
	maxVal, err := strconv.ParseFloat(maxPart, 64)
	if err != nil {
		return ScoreScale{}, fmt.Errorf("score scale must be in format 'min-max', got: %s", s)
	}
	if maxVal <= minVal {
		return ScoreScale{}, fmt.Errorf("score scale max must exceed min, got: %s", s)
	}
	return ScoreScale{Min: minVal, Max: maxVal}, nil
}

func (s ScoreScale) normalize(raw float64) float64 {
	if s.Max == s.Min {
		return 0
	}
	n := (raw - s.Min) / (s.Max - s.Min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// ScoreJudgeConfig defines the configuration parameters for the score-judge
// node.
type ScoreJudgeConfig struct {
	// JudgePrompt is the Go template used to score an answer, with
	// {{.Question}} and {{.Answer}} placeholders.
	JudgePrompt string `yaml:"judge_prompt" json:"judge_prompt" validate:"required,min=20"`
	// ScoreScale defines the raw scoring range the LLM is asked to use
	// (e.g. "1-10"), normalized internally to [0.0, 1.0].
	ScoreScale string `yaml:"score_scale" json:"score_scale" validate:"required"`
	// Temperature controls randomness in LLM scoring (0.0-1.0).
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=1.0"`
	// MaxTokens limits the length of the scoring reasoning.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=50,max=2000"`
	// MaxConcurrency limits the number of concurrent LLM calls.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=1,max=20"`
}

// DefaultScoreJudgeConfig returns sensible defaults: a 0-1 scale, zero
// temperature for consistent scoring.
func DefaultScoreJudgeConfig() ScoreJudgeConfig {
	return ScoreJudgeConfig{
		JudgePrompt:    "Rate this answer to '{{.Question}}' on a scale, responding with only the number: {{.Answer}}",
		ScoreScale:     "0-1",
		Temperature:    DefaultJudgeTemperature,
		MaxTokens:      DefaultJudgeMaxTokens,
		MaxConcurrency: DefaultJudgeMaxConcurrency,
	}
}

// NewScoreJudge builds the score-judge node body: it scores each candidate
// answer independently by calling llm once per answer (concurrently up to
// MaxConcurrency), parsing the returned numeric score and normalizing it
// against cfg.ScoreScale. Grounded on
// infrastructure/units/score_judge_unit.go's Execute.
func NewScoreJudge(name string, llm ports.LLMClient, cfg ScoreJudgeConfig) (func(ctx context.Context, question string, answers []domain.Answer) ([]domain.JudgeSummary, error), error) {
	if name == "" {
		return nil, ErrEmptyNodeName
	}
	if llm == nil {
		return nil, ErrLLMClientNil
	}
	if err := nodeValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	scale, err := ParseScoreScale(cfg.ScoreScale)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("judge_prompt").Funcs(promptFuncMap()).Parse(cfg.JudgePrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse judge prompt template: %w", err)
	}

	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultJudgeMaxConcurrency
	}

	return func(ctx context.Context, question string, answers []domain.Answer) ([]domain.JudgeSummary, error) {
		if len(answers) == 0 {
			return nil, fmt.Errorf("no answers provided for scoring")
		}

		options := map[string]any{
			"temperature": cfg.Temperature,
			"max_tokens":  cfg.MaxTokens,
		}

		summaries := make([]domain.JudgeSummary, len(answers))
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrency)

		for idx, answer := range answers {
			idx, answer := idx, answer
			g.Go(func() error {
				var promptBuf bytes.Buffer
				data := struct{ Question, Answer string }{Question: question, Answer: answer.Content}
				if err := tmpl.Execute(&promptBuf, data); err != nil {
					return fmt.Errorf("%w: %v", ErrTemplateExecution, err)
				}

				response, err := llm.Complete(ctx, promptBuf.String(), options)
				if err != nil {
					return fmt.Errorf("%w for answer %d: %v", ErrLLMCallFailed, idx, err)
				}

				raw, err := strconv.ParseFloat(strings.TrimSpace(response), 64)
				if err != nil {
					return fmt.Errorf("judge returned non-numeric score for answer %d: %q", idx, response)
				}

				summaries[idx] = domain.JudgeSummary{
					Score:     scale.normalize(raw),
					Reasoning: fmt.Sprintf("LLM scored %.2f on scale %s", raw, cfg.ScoreScale),
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("node %s: scoring failed: %w", name, err)
		}
		return summaries, nil
	}, nil
}

// NewScoreJudgeFromConfig adapts NewScoreJudge to the config.NodeFactory
// shape used by internal/config's NodeRegistry.
func NewScoreJudgeFromConfig(llm ports.LLMClient) func(id string, params map[string]any) (any, error) {
	return func(id string, params map[string]any) (any, error) {
		cfg := DefaultScoreJudgeConfig()
		if v, ok := params["judge_prompt"].(string); ok {
			cfg.JudgePrompt = v
		}
		if v, ok := params["score_scale"].(string); ok {
			cfg.ScoreScale = v
		}
		if v, ok := params["temperature"].(float64); ok {
			cfg.Temperature = v
		}
		if v, ok := params["max_tokens"].(int); ok {
			cfg.MaxTokens = v
		}
		if v, ok := params["max_concurrency"].(int); ok {
			cfg.MaxConcurrency = v
		}
		return NewScoreJudge(id, llm, cfg)
	}
}
