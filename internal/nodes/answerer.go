package nodes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/ports"
)

// Defaults for AnswererConfig, mirroring
// infrastructure/units/answerer_unit.go's package constants.
const (
	DefaultMaxConcurrency = 5
	DefaultNumAnswers     = 3
	DefaultMaxTokens      = 500
	DefaultTemperature    = 0.7
	DefaultTimeoutSeconds = 30
)

// Sentinel errors for the answerer node.
var (
	ErrQuestionEmpty     = errors.New("question cannot be empty")
	ErrLLMClientNil      = errors.New("LLM client cannot be nil")
	ErrTemplateExecution = errors.New("failed to execute prompt template")
	ErrLLMCallFailed     = errors.New("LLM call failed")
)

// AnswererConfig defines the configuration parameters for the answerer node.
type AnswererConfig struct {
	// NumAnswers specifies how many candidate answers to generate.
	NumAnswers int `yaml:"num_answers" json:"num_answers" validate:"required,min=1,max=10"`
	// Prompt is the Go template used to generate answers from the
	// question. Should use {{.Question}} as the placeholder.
	Prompt string `yaml:"prompt" json:"prompt" validate:"required,min=10"`
	// Temperature controls randomness in LLM generation (0.0-1.0).
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=1.0"`
	// MaxTokens limits the length of each generated answer.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=10,max=16000"`
	// Timeout specifies the maximum duration for the batch of LLM calls.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"required,min=1s,max=300s"`
	// MaxConcurrency limits the number of concurrent LLM calls.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"required,min=1,max=20"`
}

// DefaultAnswererConfig returns an AnswererConfig with sensible defaults.
func DefaultAnswererConfig() AnswererConfig {
	return AnswererConfig{
		NumAnswers:     DefaultNumAnswers,
		Prompt:         "Please provide a comprehensive answer to: {{.Question}}",
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
		Timeout:        DefaultTimeoutSeconds * time.Second,
		MaxConcurrency: DefaultMaxConcurrency,
	}
}

// NewAnswerer builds the answerer node body: it calls llm NumAnswers times,
// concurrently up to MaxConcurrency, rendering cfg.Prompt with the incoming
// question, and returns one domain.Answer per call. Grounded on
// infrastructure/units/answerer_unit.go's Execute, replacing its
// domain.State get/with calls with a typed question parameter and []Answer
// return value.
func NewAnswerer(name string, llm ports.LLMClient, cfg AnswererConfig) (func(ctx context.Context, question string) ([]domain.Answer, error), error) {
	if name == "" {
		return nil, ErrEmptyNodeName
	}
	if llm == nil {
		return nil, ErrLLMClientNil
	}
	if err := nodeValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	tmpl, err := template.New("prompt").Funcs(promptFuncMap()).Parse(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	return func(ctx context.Context, question string) ([]domain.Answer, error) {
		if question == "" {
			return nil, ErrQuestionEmpty
		}

		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		var promptBuf bytes.Buffer
		if err := tmpl.Execute(&promptBuf, struct{ Question string }{Question: question}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTemplateExecution, err)
		}
		prompt := promptBuf.String()

		options := map[string]any{
			"temperature": cfg.Temperature,
			"max_tokens":  cfg.MaxTokens,
		}

		answers := make([]domain.Answer, cfg.NumAnswers)
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.MaxConcurrency)

		for idx := 0; idx < cfg.NumAnswers; idx++ {
			g.Go(func() error {
				response, err := llm.Complete(ctx, prompt, options)
				if err != nil {
					return fmt.Errorf("%w for answer %d: %v", ErrLLMCallFailed, idx+1, err)
				}
				answers[idx] = domain.Answer{ID: fmt.Sprintf("%s_answer_%d", name, idx+1), Content: response}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			if errors.Is(err, ErrLLMCallFailed) {
				return nil, err
			}
			return nil, fmt.Errorf("node %s: answer generation failed: %w", name, err)
		}
		return answers, nil
	}, nil
}

// NewAnswererFromConfig adapts NewAnswerer to the config.NodeFactory shape
// used by internal/config's NodeRegistry. The LLM client is supplied by the
// closure registering this factory (see RegisterBuiltinNodes), not by
// params, since it's a runtime dependency rather than graph-declared
// configuration.
func NewAnswererFromConfig(llm ports.LLMClient) func(id string, params map[string]any) (any, error) {
	return func(id string, params map[string]any) (any, error) {
		cfg := DefaultAnswererConfig()
		if v, ok := params["num_answers"].(int); ok {
			cfg.NumAnswers = v
		}
		if v, ok := params["prompt"].(string); ok {
			cfg.Prompt = v
		}
		if v, ok := params["temperature"].(float64); ok {
			cfg.Temperature = v
		}
		if v, ok := params["max_tokens"].(int); ok {
			cfg.MaxTokens = v
		}
		if v, ok := params["timeout"].(string); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid timeout %q: %w", v, err)
			}
			cfg.Timeout = d
		}
		if v, ok := params["max_concurrency"].(int); ok {
			cfg.MaxConcurrency = v
		}
		return NewAnswerer(id, llm, cfg)
	}
}
