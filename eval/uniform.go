// Package eval provides the built-in Evaluator implementations: a
// uniform baseline with random playouts, a tactical heuristic, and a
// caching wrapper for expensive evaluators.
package eval

import (
	"sync"
	"time"

	rng "github.com/leesper/go_rng"

	"github.com/pentemind/game"
	"github.com/pentemind/mcts"
)

// maxPlayoutDepth caps random playouts so a pathological position
// cannot spin forever.
const maxPlayoutDepth = 200

// Uniform spreads the prior evenly over the legal moves. Its value is
// the outcome of a single random playout, or a flat 0 when playouts
// are disabled.
type Uniform struct {
	// Playouts enables the random-rollout value. Off, EvaluateValue
	// returns 0 for every non-terminal position.
	Playouts bool

	mu  sync.Mutex
	gen *rng.UniformGenerator
}

// NewUniform returns a playout-backed uniform evaluator. A zero seed
// is replaced by the clock.
func NewUniform(seed int64) *Uniform {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Uniform{
		Playouts: true,
		gen:      rng.NewUniformGenerator(seed),
	}
}

// Evaluate implements mcts.Evaluator.
func (u *Uniform) Evaluate(s *game.State) ([]mcts.MovePrior, float32) {
	return u.EvaluatePolicy(s), u.EvaluateValue(s)
}

// EvaluatePolicy returns a uniform prior over the legal moves, empty
// at terminal positions.
func (u *Uniform) EvaluatePolicy(s *game.State) []mcts.MovePrior {
	if s.IsTerminal() {
		return nil
	}
	legal := s.LegalMoves()
	p := 1 / float32(len(legal))
	priors := make([]mcts.MovePrior, len(legal))
	for i, m := range legal {
		priors[i] = mcts.MovePrior{Move: m, P: p}
	}
	return priors
}

// EvaluateValue plays one random game to the end and scores it from
// the side to move's perspective. Truncated playouts count as draws.
func (u *Uniform) EvaluateValue(s *game.State) float32 {
	me := s.SideToMove()
	if w := s.Winner(); w != game.None {
		if w == me {
			return 1
		}
		return -1
	}
	if !u.Playouts {
		return 0
	}

	st := s.Clone()
	for depth := 0; depth < maxPlayoutDepth; depth++ {
		if st.IsTerminal() {
			break
		}
		legal := st.LegalMoves()
		m := legal[u.intn(len(legal))]
		if err := st.MakeMove(m); err != nil {
			break
		}
	}
	switch st.Winner() {
	case me:
		return 1
	case game.None:
		return 0
	default:
		return -1
	}
}

// intn serialises the shared generator; the search calls evaluators
// from many workers at once.
func (u *Uniform) intn(n int) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return int(u.gen.Int32n(int32(n)))
}
