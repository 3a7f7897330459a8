package game

import "gorgonia.org/tensor"

// EncodePlanes is the number of feature planes EncodeInput emits: own
// stones, opponent stones, and a side-to-move fill plane.
const EncodePlanes = 3

// EncodeInput encodes the position as flat float32 planes from the
// side to move's perspective, for consumption by learned evaluators.
func EncodeInput(s *State) []float32 {
	my, opp := s.black, s.white
	fill := float32(0)
	if s.SideToMove() == White {
		my, opp = s.white, s.black
		fill = 1
	}

	input := make([]float32, EncodePlanes*BoardCells)
	my.ForEach(func(idx int) { input[idx] = 1 })
	opp.ForEach(func(idx int) { input[BoardCells+idx] = 1 })
	for i := 0; i < BoardCells; i++ {
		input[2*BoardCells+i] = fill
	}
	return input
}

// EncodeTensor wraps EncodeInput in a dense tensor shaped
// (planes, height, width).
func EncodeTensor(s *State) *tensor.Dense {
	return tensor.New(
		tensor.WithBacking(EncodeInput(s)),
		tensor.WithShape(EncodePlanes, BoardSize, BoardSize),
	)
}

// VisitPolicy flattens per-move visit weights into the full 361-cell
// action space, normalised to sum to 1 when any weight is positive.
func VisitPolicy(moves []Move, weights []float32) []float32 {
	policy := make([]float32, BoardCells)
	var sum float32
	for i, m := range moves {
		if i < len(weights) && m.IsValid() {
			policy[m.Index()] = weights[i]
			sum += weights[i]
		}
	}
	if sum > 0 {
		for i := range policy {
			policy[i] /= sum
		}
	}
	return policy
}
