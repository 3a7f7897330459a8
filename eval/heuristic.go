package eval

import (
	"github.com/chewxy/math32"

	"github.com/pentemind/game"
	"github.com/pentemind/mcts"
)

// Heuristic weights priors by the tactical score of each move: capture
// potential, capture and open-three blocks, and line building (see
// game.State.ScoreMove). It is deterministic, stateless and safe to share.
type Heuristic struct{}

// NewHeuristic returns the tactical evaluator.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Evaluate implements mcts.Evaluator.
func (h *Heuristic) Evaluate(s *game.State) ([]mcts.MovePrior, float32) {
	if s.IsTerminal() {
		return nil, h.EvaluateValue(s)
	}
	priors, best := h.scoredPolicy(s)
	return priors, squash(best)
}

// EvaluatePolicy normalises the move scores over the legal moves.
func (h *Heuristic) EvaluatePolicy(s *game.State) []mcts.MovePrior {
	priors, _ := h.scoredPolicy(s)
	return priors
}

// EvaluateValue squashes the best available tactical score into
// [0, 1): a quiet position with nothing but baseline moves reads 0.
// A finished game reads 1 or -1 for a win or loss of the side to move,
// 0 for a draw.
func (h *Heuristic) EvaluateValue(s *game.State) float32 {
	if s.IsTerminal() {
		if w := s.Winner(); w != game.None {
			if w == s.SideToMove() {
				return 1
			}
			return -1
		}
		return 0
	}
	best := float32(0)
	for _, m := range s.LegalMoves() {
		if sc := s.ScoreMove(m); sc > best {
			best = sc
		}
	}
	return squash(best)
}

func (h *Heuristic) scoredPolicy(s *game.State) ([]mcts.MovePrior, float32) {
	if s.IsTerminal() {
		return nil, 0
	}
	legal := s.LegalMoves()
	priors := make([]mcts.MovePrior, len(legal))
	var sum, best float32
	for i, m := range legal {
		sc := s.ScoreMove(m)
		priors[i] = mcts.MovePrior{Move: m, P: sc}
		sum += sc
		if sc > best {
			best = sc
		}
	}
	if sum <= math32.SmallestNonzeroFloat32 {
		p := 1 / float32(len(legal))
		for i := range priors {
			priors[i].P = p
		}
		return priors, best
	}
	for i := range priors {
		priors[i].P /= sum
	}
	return priors, best
}

// squash maps a non-negative tactical score onto [0, 1): the baseline
// score of 1 maps to 0, a forced win saturates toward 1.
func squash(score float32) float32 {
	if score <= 1 {
		return 0
	}
	return (score - 1) / (score + 1)
}
