package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudgetExceededError_Is(t *testing.T) {
	err := NewBudgetExceededError("tokens", 100, 150, "judge-1")
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.Contains(t, err.Error(), "judge-1")
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewConfigError("node:answerer", "missing model", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "node:answerer")
}

func TestNodeExecutionError_RecoveredPanic(t *testing.T) {
	cause := errors.New("index out of range")
	err := NewNodeExecutionError("n1", cause, true)
	assert.True(t, err.Recovered)
	assert.Contains(t, err.Error(), "recovered panic")
	assert.ErrorIs(t, err, cause)
}

func TestValidationError_AggregatesMessages(t *testing.T) {
	verr := NewValidationError("graph-config")
	assert.False(t, verr.HasErrors())
	verr.AddError("units must be non-empty")
	verr.AddError("graph.edges[0].from: unknown node")
	assert.True(t, verr.HasErrors())
	assert.Len(t, verr.Errors, 2)
}

func TestShapeMismatchError_Message(t *testing.T) {
	err := &ShapeMismatchError{NodeID: "u1", Expected: 2, Got: 1}
	assert.Contains(t, err.Error(), "expected 2")
	assert.Contains(t, err.Error(), "got 1")
}
