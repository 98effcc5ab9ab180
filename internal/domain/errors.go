package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the graph engine's runtime-defect and fatal-cycle
// paths (spec §7.2–§7.4). Configuration-time failures are always wrapped
// in *ConfigError or *ShapeError instead, since the caller needs context
// (which node, which argument) to fix the registration.
var (
	// ErrNoValue indicates value() was called on a port with no applied
	// value. Reading it is a programmer-contract violation (§7.2).
	ErrNoValue = errors.New("port has no value")

	// ErrUnknownHandle indicates a removal or lookup targeted a node or
	// port the graph does not own, or that was already removed.
	ErrUnknownHandle = errors.New("unknown node or port handle")

	// ErrDependentPort indicates an attempt to directly remove a port that
	// is owned by a node's output rather than an independently-created
	// port; it must be released by removing its owning node instead.
	ErrDependentPort = errors.New("port is owned by a node; remove the node instead")

	// ErrCycle indicates an edge would have introduced a cycle into what
	// must remain a DAG.
	ErrCycle = errors.New("operation would introduce a cycle")

	// ErrBudgetExceeded indicates a budget limit has been exceeded.
	ErrBudgetExceeded = errors.New("budget exceeded")
)

// ConfigError represents a configuration-time failure: an invalid port
// element type, an unknown node type in a graph definition, or an
// incompatible link with no registered conversion (spec §7.1). Configuration
// errors are always local to the registration call that produced them.
type ConfigError struct {
	// Component names what was being configured (a node ID, a port name,
	// an edge).
	Component string
	// Reason is a human-readable explanation of what failed.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %s: %v", e.Component, e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s: %s", e.Component, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError for the named component.
func NewConfigError(component, reason string, err error) *ConfigError {
	return &ConfigError{Component: component, Reason: reason, Err: err}
}

// ShapeAspect names which part of a callable's signature the shape
// introspection layer (C8) rejected.
type ShapeAspect string

// Aspects a callable signature is classified and validated against during
// node registration.
const (
	AspectCoreArg     ShapeAspect = "core-argument"
	AspectOptOutputs  ShapeAspect = "optional-outputs"
	AspectInputs      ShapeAspect = "inputs"
	AspectReqOutputs  ShapeAspect = "required-outputs"
	AspectElementType ShapeAspect = "element-type"
)

// ShapeError reports why a callable was rejected by the shape
// introspection layer at node-registration time (spec §7.1, §4.8).
type ShapeError struct {
	Aspect ShapeAspect
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid node shape (%s): %s", e.Aspect, e.Reason)
}

// NewShapeError builds a ShapeError for the given aspect.
func NewShapeError(aspect ShapeAspect, reason string) *ShapeError {
	return &ShapeError{Aspect: aspect, Reason: reason}
}

// NodeExecutionError wraps a node body's returned error or recovered panic
// (spec §7.3). The core never re-panics; it marks the node Done and keeps
// its prior required-output values, and surfaces this error to whatever
// observer is attached.
type NodeExecutionError struct {
	NodeID    string
	Recovered bool
	Err       error
}

func (e *NodeExecutionError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("node %s: recovered panic: %v", e.NodeID, e.Err)
	}
	return fmt.Sprintf("node %s: execution failed: %v", e.NodeID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// NewNodeExecutionError wraps a node body failure.
func NewNodeExecutionError(nodeID string, err error, recovered bool) *NodeExecutionError {
	return &NodeExecutionError{NodeID: nodeID, Recovered: recovered, Err: err}
}

// ShapeMismatchError reports a uniform-API node whose callable returned a
// value count different from its declared required-output count (§7.4).
// It is returned as the node's error: engine.Node reports it as the Err of a
// NodeExecutionError through the node's OnError callback and marks the node
// Done. The commit cycle is not stopped; the remaining nodes still run.
type ShapeMismatchError struct {
	NodeID   string
	Expected int
	Got      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf(
		"node %s: uniform output arity mismatch: expected %d, got %d",
		e.NodeID, e.Expected, e.Got,
	)
}

// ValidationError aggregates multiple configuration-time validation
// failures for a single entity (a graph config document, a node config
// block).
type ValidationError struct {
	Entity string
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}

// BudgetExceededError reports that an LLM client exceeded its configured
// token or call budget. It is produced by
// infrastructure/middleware.BudgetTrackingLLMClient, which fills NodeID with
// the wrapped client's model name.
type BudgetExceededError struct {
	LimitType string
	Limit     int
	Used      int
	NodeID    string
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s limit=%d, used=%d, node=%s",
		e.LimitType, e.Limit, e.Used, e.NodeID)
}

func (e *BudgetExceededError) Is(target error) bool { return target == ErrBudgetExceeded }

// NewBudgetExceededError creates a BudgetExceededError.
func NewBudgetExceededError(limitType string, limit, used int, nodeID string) *BudgetExceededError {
	return &BudgetExceededError{LimitType: limitType, Limit: limit, Used: used, NodeID: nodeID}
}
