// Package nodes provides the evaluation-domain node bodies wired into a
// graph by internal/config's NodeRegistry: deterministic matchers, LLM-backed
// generation/scoring/verification, and score-pooling aggregators. Each
// exported constructor returns a plain Go func whose signature
// internal/shape classifies at registration time (C8) — there is no
// equivalent of the teacher's ports.Unit interface here, since a node's
// contract is now its function signature, not an interface it implements.
package nodes

import (
	"errors"
)

// Sentinel errors shared across node constructors, mirroring
// infrastructure/units/shared.go's package-level error variables one level
// down (node bodies, not ports.Unit wrappers).
var (
	// ErrEmptyNodeName is returned when a node constructor is given an
	// empty name/ID.
	ErrEmptyNodeName = errors.New("node name cannot be empty")

	// ErrNoScores is returned when a pooling node is asked to aggregate an
	// empty score set.
	ErrNoScores = errors.New("no scores provided for aggregation")

	// ErrScoreMismatch is returned when the number of scores doesn't match
	// the number of candidate answers.
	ErrScoreMismatch = errors.New("scores and candidates length mismatch")

	// ErrTie is returned when multiple candidates tie for the winning score
	// and the configured TieBreaker is TieError.
	ErrTie = errors.New("multiple answers tied with highest score")

	// ErrBelowMinScore is returned when the winning score falls below a
	// node's configured minimum threshold.
	ErrBelowMinScore = errors.New("aggregate score below minimum threshold")
)

// TieBreaker selects how a pooling node resolves equal top scores, the same
// three strategies as the teacher's aggregator units.
type TieBreaker string

// Supported tie-breaking strategies.
const (
	TieFirst  TieBreaker = "first"
	TieRandom TieBreaker = "random"
	TieError  TieBreaker = "error"
)
