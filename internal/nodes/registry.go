package nodes

import (
	"github.com/nilgate/gate/internal/config"
	"github.com/nilgate/gate/internal/ports"
)

// RegisterBuiltinNodes registers every node type this package provides
// against r, the way internal/application/unit_registry.go's
// RegisterBuiltinUnits registered the teacher's eight built-in units. llm
// may be nil if only the deterministic node types (exact_match,
// fuzzy_match, pool) will be used — the LLM-backed factories return
// ErrLLMClientNil at Create time if invoked without one.
func RegisterBuiltinNodes(r *config.NodeRegistry, llm ports.LLMClient) {
	r.Register("exact_match", NewExactMatchFromConfig)
	r.Register("fuzzy_match", NewFuzzyMatchFromConfig)
	r.Register("pool", NewPoolFromConfig)
	r.Register("answerer", NewAnswererFromConfig(llm))
	r.Register("score_judge", NewScoreJudgeFromConfig(llm))
	r.Register("score_judge_position_swap", NewPositionSwapJudgeFromConfig(llm))
	r.Register("verification", NewVerificationFromConfig(llm))
}
