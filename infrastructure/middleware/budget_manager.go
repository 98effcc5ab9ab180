// Package middleware provides cross-cutting concerns for the evaluation
// engine: budget enforcement and metrics collection, wired around the
// infrastructure clients a graph's nodes are built with rather than around
// the teacher's ports.Unit chain.
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/ports"
)

// Budget defines resource consumption limits enforced across an LLM
// client's lifetime. Zero means unlimited for that dimension.
type Budget struct {
	MaxTokens int64
	MaxCalls  int64
}

// Usage is the Go-native replacement for the teacher's domain.Usage, which
// lived on domain.State (removed along with the rest of the ports.Unit/
// domain.State chain — see DESIGN.md). Since budget tracking is no longer
// threaded through request-scoped state, it accumulates here instead, on
// the client decorator itself.
type Usage struct {
	Tokens int64
	Calls  int64
}

// BudgetObserver provides observability hooks for budget operations.
// Implementations can add tracing and metrics without coupling those
// concerns to budget enforcement itself.
type BudgetObserver interface {
	// PreCheck is called before a completion request, with usage as
	// observed at that moment.
	PreCheck(ctx context.Context, usage Usage, budget Budget)

	// PostCheck is called after the request completes, with the updated
	// usage, elapsed time, and any error (including a budget breach).
	PostCheck(ctx context.Context, usage Usage, budget Budget, elapsed time.Duration, err error)
}

// BudgetTrackingLLMClient wraps a ports.LLMClient, enforcing Budget limits
// across every call made through it and accumulating running Usage. This
// replaces the teacher's BudgetManager, which wrapped a ports.Unit and read
// usage out of domain.State; graph nodes here are built from an injected
// ports.LLMClient (see internal/nodes.RegisterBuiltinNodes), so the budget
// boundary moves to the client every LLM-backed node shares.
type BudgetTrackingLLMClient struct {
	next     ports.LLMClient
	budget   Budget
	observer BudgetObserver

	mu    sync.Mutex
	usage Usage
}

var _ ports.LLMClient = (*BudgetTrackingLLMClient)(nil)

// NewBudgetTrackingLLMClient wraps next with budget enforcement. observer
// may be nil.
func NewBudgetTrackingLLMClient(next ports.LLMClient, budget Budget, observer BudgetObserver) *BudgetTrackingLLMClient {
	if next == nil {
		panic("budget tracking llm client: next client is required")
	}
	return &BudgetTrackingLLMClient{next: next, budget: budget, observer: observer}
}

// Usage returns a snapshot of cumulative usage tracked so far.
func (b *BudgetTrackingLLMClient) Usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usage
}

// Complete implements ports.LLMClient by delegating to CompleteWithUsage
// and discarding the usage counts, the same relationship the underlying
// client's own two methods have.
func (b *BudgetTrackingLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	output, _, _, err := b.CompleteWithUsage(ctx, prompt, options)
	return output, err
}

// CompleteWithUsage enforces the budget before and after delegating to the
// wrapped client: a request that would start over budget is rejected
// without calling next, and one that pushes usage over budget during
// execution still returns the result alongside a BudgetExceededError, so a
// caller can decide whether to use a response it already paid for.
func (b *BudgetTrackingLLMClient) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	before := b.Usage()
	if err := b.checkLimits(before); err != nil {
		return "", 0, 0, err
	}
	if b.observer != nil {
		b.observer.PreCheck(ctx, before, b.budget)
	}

	start := time.Now()
	output, tokensIn, tokensOut, err := b.next.CompleteWithUsage(ctx, prompt, options)
	elapsed := time.Since(start)

	after := before
	if err == nil {
		b.mu.Lock()
		b.usage.Tokens += int64(tokensIn + tokensOut)
		b.usage.Calls++
		after = b.usage
		b.mu.Unlock()
	}

	if err == nil {
		err = b.checkLimits(after)
	}

	if b.observer != nil {
		b.observer.PostCheck(ctx, after, b.budget, elapsed, err)
	}

	return output, tokensIn, tokensOut, err
}

// EstimateTokens delegates to the wrapped client.
func (b *BudgetTrackingLLMClient) EstimateTokens(text string) (int, error) {
	return b.next.EstimateTokens(text)
}

// GetModel delegates to the wrapped client.
func (b *BudgetTrackingLLMClient) GetModel() string { return b.next.GetModel() }

// checkLimits returns a *domain.BudgetExceededError if usage has crossed
// either configured limit.
func (b *BudgetTrackingLLMClient) checkLimits(usage Usage) error {
	if b.budget.MaxTokens > 0 && usage.Tokens > b.budget.MaxTokens {
		return domain.NewBudgetExceededError("tokens", int(b.budget.MaxTokens), int(usage.Tokens), b.next.GetModel())
	}
	if b.budget.MaxCalls > 0 && usage.Calls > b.budget.MaxCalls {
		return domain.NewBudgetExceededError("calls", int(b.budget.MaxCalls), int(usage.Calls), b.next.GetModel())
	}
	return nil
}

// Validate checks that budget is configured sensibly.
func (b *BudgetTrackingLLMClient) Validate() error {
	if b.budget.MaxTokens < 0 {
		return fmt.Errorf("budget tracking llm client: max_tokens cannot be negative, got %d", b.budget.MaxTokens)
	}
	if b.budget.MaxCalls < 0 {
		return fmt.Errorf("budget tracking llm client: max_calls cannot be negative, got %d", b.budget.MaxCalls)
	}
	return nil
}

// BudgetFromParams builds a Budget from a node-config params map, the same
// map[string]any shape every config.NodeFactory reads its parameters from.
func BudgetFromParams(params map[string]any) Budget {
	var budget Budget
	switch v := params["max_tokens"].(type) {
	case int:
		budget.MaxTokens = int64(v)
	case int64:
		budget.MaxTokens = v
	case float64:
		budget.MaxTokens = int64(v)
	}
	switch v := params["max_calls"].(type) {
	case int:
		budget.MaxCalls = int64(v)
	case int64:
		budget.MaxCalls = v
	case float64:
		budget.MaxCalls = int64(v)
	}
	return budget
}
