package mcts

import "github.com/pentemind/game"

// MovePrior pairs a legal move with its policy probability.
type MovePrior struct {
	Move game.Move
	P    float32
}

// Evaluator produces a policy prior over a state's legal moves and a
// scalar value in [-1, 1] from the side to move's perspective. The
// priors must cover exactly the legal moves and sum to 1 when
// non-empty; on a mismatch the search falls back to a uniform prior
// and counts it in the statistics.
//
// Implementations are shared by every search worker and must be safe
// for concurrent calls.
type Evaluator interface {
	Evaluate(s *game.State) ([]MovePrior, float32)
	EvaluatePolicy(s *game.State) []MovePrior
	EvaluateValue(s *game.State) float32
}

// BatchEvaluator is an optional extension the inference thread uses to
// amortise evaluator calls when batching is enabled. Results align
// index-for-index with the input states.
type BatchEvaluator interface {
	Evaluator
	EvaluateBatch(states []*game.State) ([][]MovePrior, []float32)
}
