package nodes

import (
	"context"
	"fmt"
	"sync"

	"github.com/nilgate/gate/internal/ports"
)

var _ ports.LLMClient = (*stubLLM)(nil)

// stubLLM is a minimal deterministic ports.LLMClient for node tests that
// need precise control over the raw LLM response text, rather than the
// pattern-matching behavior of internal/testutils.MockLLMClient. Safe for
// the concurrent Complete calls the answerer/score_judge nodes make.
type stubLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

func newStubLLM(responses ...string) *stubLLM {
	return &stubLLM{responses: responses}
}

func (s *stubLLM) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	r, _, _, err := s.CompleteWithUsage(ctx, prompt, options)
	return r, err
}

func (s *stubLLM) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", 0, 0, s.err
	}
	if len(s.responses) == 0 {
		return "", 0, 0, fmt.Errorf("stubLLM: no responses configured")
	}
	r := s.responses[s.calls%len(s.responses)]
	s.calls++
	tokensIn, _ := s.EstimateTokens(prompt)
	tokensOut, _ := s.EstimateTokens(r)
	return r, tokensIn, tokensOut, nil
}

func (s *stubLLM) EstimateTokens(text string) (int, error) { return len(text) / 4, nil }

func (s *stubLLM) GetModel() string { return "stub-model" }
