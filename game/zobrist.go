package game

import "math/rand"

// maxCaptureKey bounds the capture-count key tables; Keryo can briefly
// overshoot its 15-capture threshold by a triplet.
const maxCaptureKey = 20

// zobristTable holds the random keys mixed into position hashes. Keys
// are generated once from a fixed seed so hashes are stable across
// processes, which keeps external caches reusable.
type zobristTable struct {
	stones   [2][BoardCells]uint64
	captures [2][maxCaptureKey]uint64
	side     uint64
}

var zobrist = newZobristTable()

func newZobristTable() *zobristTable {
	rng := rand.New(rand.NewSource(0x5eedbea7))
	t := &zobristTable{}
	for p := 0; p < 2; p++ {
		for i := 0; i < BoardCells; i++ {
			t.stones[p][i] = rng.Uint64()
		}
		for i := 0; i < maxCaptureKey; i++ {
			t.captures[p][i] = rng.Uint64()
		}
	}
	t.side = rng.Uint64()
	return t
}

// Hash returns the Zobrist hash of the position: stones, capture
// counters and side to move. The tree does not consume this; it keys
// external caching layers such as the cached evaluator.
func (s *State) Hash() uint64 {
	var h uint64
	s.black.ForEach(func(idx int) { h ^= zobrist.stones[0][idx] })
	s.white.ForEach(func(idx int) { h ^= zobrist.stones[1][idx] })
	h ^= zobrist.captures[0][clampCaptureKey(s.blackCaptures)]
	h ^= zobrist.captures[1][clampCaptureKey(s.whiteCaptures)]
	if s.sideToMove == White {
		h ^= zobrist.side
	}
	return h
}

func clampCaptureKey(n int) int {
	if n < 0 {
		return 0
	}
	if n >= maxCaptureKey {
		return maxCaptureKey - 1
	}
	return n
}
