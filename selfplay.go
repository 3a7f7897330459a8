package pentemind

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/pentemind/game"
)

// Example is one self-play training position: encoded board planes,
// the visit-count policy over the full action space, and the final
// outcome from the position's side to move.
type Example struct {
	Board  []float32
	Policy []float32
	Value  float32
}

// maxSelfPlayMoves bounds a self-play game; anything longer is
// scored as a draw.
const maxSelfPlayMoves = 400

// SelfPlay plays the engine against itself from an empty board and
// returns the recorded examples together with the winner. Example
// values are relabelled once the outcome is known: +1 for positions
// whose side to move won, -1 lost, 0 drawn.
func (e *Engine) SelfPlay() ([]Example, game.Player, error) {
	e.state.Reset()
	e.ClearTree()

	var examples []Example
	var movers []game.Player

	for e.state.MoveCount() < maxSelfPlayMoves && !e.state.IsTerminal() {
		move, err := e.ParallelSearch()
		if err != nil {
			return nil, game.None, err
		}

		children := e.TopChildren(0)
		moves := make([]game.Move, len(children))
		weights := make([]float32, len(children))
		for i, c := range children {
			moves[i] = c.Move
			weights[i] = float32(c.Visits)
		}
		examples = append(examples, Example{
			Board:  game.EncodeInput(e.state),
			Policy: game.VisitPolicy(moves, weights),
		})
		movers = append(movers, e.state.SideToMove())

		if err := e.Play(move); err != nil {
			return nil, game.None, err
		}
	}

	winner := e.state.Winner()
	for i := range examples {
		switch winner {
		case game.None:
			examples[i].Value = 0
		case movers[i]:
			examples[i].Value = 1
		default:
			examples[i].Value = -1
		}
	}
	return examples, winner, nil
}

// BatchExamples shuffles the examples and packs whole batches into
// dense tensors shaped for a policy-value network: inputs
// (n, planes, 19, 19), policies (n, 361), values (n), where n is
// batches*batchSize; batches is returned alongside. Leftover examples
// that do not fill a batch are dropped.
func BatchExamples(examples []Example, batchSize int) (xs, policies, values *tensor.Dense, batches int, err error) {
	if batchSize <= 0 {
		return nil, nil, nil, 0, errors.New("pentemind: batch size must be positive")
	}
	batches = len(examples) / batchSize
	if batches == 0 {
		return nil, nil, nil, 0, errors.New("pentemind: too few examples for one batch")
	}
	shuffleExamples(examples)
	total := batches * batchSize

	var xsBacking, policiesBacking, valuesBacking []float32
	for i, ex := range examples {
		if i >= total {
			break
		}
		xsBacking = append(xsBacking, ex.Board...)
		policiesBacking = append(policiesBacking, ex.Policy...)
		valuesBacking = append(valuesBacking, ex.Value)
	}

	xs = tensor.New(
		tensor.WithBacking(xsBacking),
		tensor.WithShape(total, game.EncodePlanes, game.BoardSize, game.BoardSize),
	)
	policies = tensor.New(
		tensor.WithBacking(policiesBacking),
		tensor.WithShape(total, game.BoardCells),
	)
	values = tensor.New(
		tensor.WithBacking(valuesBacking),
		tensor.WithShape(total),
	)
	return xs, policies, values, batches, nil
}

func shuffleExamples(examples []Example) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range examples {
		j := r.Intn(i + 1)
		examples[i], examples[j] = examples[j], examples[i]
	}
}
