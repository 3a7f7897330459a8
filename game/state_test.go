package game

import (
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMove(t *testing.T, s string) Move {
	t.Helper()
	m, err := ParseMove(s)
	require.NoError(t, err)
	return m
}

func play(t *testing.T, st *State, moves ...string) {
	t.Helper()
	for _, s := range moves {
		require.NoError(t, st.MakeMove(mustMove(t, s)), "playing %s", s)
	}
}

// Most tactical setups put Black's second move next to the centre,
// which the tournament rule forbids; these tests switch it off.
func penteNoTournament() Config {
	cfg := PenteConfig()
	cfg.TournamentRule = false
	return cfg
}

func keryoNoTournament() Config {
	cfg := KeryoConfig()
	cfg.TournamentRule = false
	return cfg
}

func sortedLegal(st *State) []Move {
	legal := append([]Move(nil), st.LegalMoves()...)
	sort.Slice(legal, func(i, j int) bool { return legal[i].Index() < legal[j].Index() })
	return legal
}

func TestInitialState(t *testing.T) {
	st := NewState(PenteConfig())
	assert.Equal(t, Black, st.SideToMove())
	assert.Equal(t, 0, st.MoveCount())
	assert.Equal(t, 0, st.CapturesOf(Black))
	assert.Equal(t, 0, st.CapturesOf(White))
	assert.False(t, st.IsTerminal())
	assert.Equal(t, NoMove(), st.LastMove())

	// Only the centre is playable before the first move.
	require.Len(t, st.LegalMoves(), 1)
	assert.Equal(t, NewMove(9, 9), st.LegalMoves()[0])
}

func TestFirstMoveMustBeCentre(t *testing.T) {
	st := NewState(PenteConfig())
	err := st.MakeMove(mustMove(t, "A1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalMove))
	assert.Equal(t, 0, st.MoveCount())

	require.NoError(t, st.MakeMove(mustMove(t, "K10")))
	assert.Equal(t, White, st.SideToMove())
	assert.Equal(t, Black, st.StoneAt(9, 9))
}

func TestMakeMoveRejections(t *testing.T) {
	st := NewState(PenteConfig())
	play(t, st, "K10")

	// Occupied cell.
	err := st.MakeMove(mustMove(t, "K10"))
	assert.True(t, errors.Is(err, ErrIllegalMove))
	// Sentinel move.
	err = st.MakeMove(NoMove())
	assert.True(t, errors.Is(err, ErrIllegalMove))
	// Nothing changed.
	assert.Equal(t, 1, st.MoveCount())
	assert.Equal(t, White, st.SideToMove())
}

func TestConfigPresets(t *testing.T) {
	pente := PenteConfig()
	assert.Equal(t, 10, pente.CapturesToWin)
	assert.Equal(t, CapturePair, pente.CaptureRule)
	assert.True(t, pente.TournamentRule)

	gomoku := GomokuConfig()
	assert.Equal(t, CaptureNone, gomoku.CaptureRule)

	keryo := KeryoConfig()
	assert.Equal(t, 15, keryo.CapturesToWin)
	assert.Equal(t, CapturePairOrTriplet, keryo.CaptureRule)
}

func TestPairCapture(t *testing.T) {
	st := NewState(penteNoTournament())
	// Black K10, White L10, Black J10, White M10, Black N10 captures
	// the white pair L10 M10.
	play(t, st, "K10", "L10", "J10", "M10", "N10")

	assert.Equal(t, 2, st.CapturesOf(Black))
	assert.Equal(t, None, st.StoneAt(10, 9))
	assert.Equal(t, None, st.StoneAt(11, 9))
	assert.Equal(t, Black, st.StoneAt(12, 9))
}

func TestCaptureUndoRestoresEverything(t *testing.T) {
	st := NewState(penteNoTournament())
	play(t, st, "K10", "L10", "J10", "M10")

	before := st.Clone()
	beforeLegal := sortedLegal(st)

	play(t, st, "N10")
	require.Equal(t, 2, st.CapturesOf(Black))

	st.UndoMove()

	assert.True(t, st.Equal(before))
	assert.Equal(t, 0, st.CapturesOf(Black))
	assert.Equal(t, White, st.StoneAt(10, 9))
	assert.Equal(t, White, st.StoneAt(11, 9))
	assert.Equal(t, beforeLegal, sortedLegal(st))
	assert.Equal(t, 4, st.MoveCount())
}

func TestKeryoTripletCapture(t *testing.T) {
	st := NewState(keryoNoTournament())
	// Black brackets three whites: K10 L10 M10 N10 O10.
	play(t, st, "K10", "L10", "A1", "M10", "A2", "N10", "O10")

	assert.Equal(t, 3, st.CapturesOf(Black))
	assert.Equal(t, None, st.StoneAt(10, 9))
	assert.Equal(t, None, st.StoneAt(11, 9))
	assert.Equal(t, None, st.StoneAt(12, 9))

	st.UndoMove()
	assert.Equal(t, 0, st.CapturesOf(Black))
	assert.Equal(t, White, st.StoneAt(10, 9))
	assert.Equal(t, White, st.StoneAt(11, 9))
	assert.Equal(t, White, st.StoneAt(12, 9))
}

func TestPairCaptureDisabledInGomoku(t *testing.T) {
	cfg := GomokuConfig()
	cfg.TournamentRule = false
	st := NewState(cfg)
	play(t, st, "K10", "L10", "J10", "M10", "N10")
	assert.Equal(t, 0, st.CapturesOf(Black))
	assert.Equal(t, White, st.StoneAt(10, 9))
	assert.Equal(t, White, st.StoneAt(11, 9))
}

func TestEdgeCaptureNoOutOfBoundsRead(t *testing.T) {
	st := NewState(PenteConfig())
	// White pair on the bottom edge, bracketed from the corner.
	play(t, st, "K10", "B1", "D1", "C1", "A1")

	assert.Equal(t, 2, st.CapturesOf(Black))
	assert.Equal(t, None, st.StoneAt(1, 0))
	assert.Equal(t, None, st.StoneAt(2, 0))
}

func TestNoCaptureWhenPatternIncomplete(t *testing.T) {
	st := NewState(PenteConfig())
	// K10(B) L10(W) M10(W) with N10 empty: moving INTO a bracket is
	// safe, only placing the bracketing stone captures.
	play(t, st, "K10", "L10", "A1", "M10")
	assert.Equal(t, 0, st.CapturesOf(Black))
	assert.Equal(t, 0, st.CapturesOf(White))
}

func TestTournamentRuleThirdPly(t *testing.T) {
	st := NewState(PenteConfig())
	play(t, st, "K10", "L9")

	// Inside the centre 5x5: rejected.
	err := st.MakeMove(mustMove(t, "L10"))
	assert.True(t, errors.Is(err, ErrIllegalMove))
	err = st.MakeMove(mustMove(t, "M12"))
	assert.True(t, errors.Is(err, ErrIllegalMove))

	// The maintained legal set excludes the whole box.
	for _, m := range st.LegalMoves() {
		assert.False(t, insideTournamentBox(m), "box cell %v in legal set", m)
	}

	// Immediately outside: accepted.
	require.NoError(t, st.MakeMove(mustMove(t, "N10")))
}

func TestTournamentUndoRestoresBox(t *testing.T) {
	st := NewState(PenteConfig())
	play(t, st, "K10")
	beforeLegal := sortedLegal(st)

	play(t, st, "L9")
	st.UndoMove()
	assert.Equal(t, beforeLegal, sortedLegal(st))
}

func TestFiveInARowWin(t *testing.T) {
	st := NewState(penteNoTournament())
	play(t, st,
		"K10", "A1",
		"L10", "A2",
		"M10", "A3",
		"N10", "A4",
		"O10",
	)
	assert.Equal(t, Black, st.Winner())
	assert.True(t, st.IsTerminal())
}

func TestSixInARowStillWins(t *testing.T) {
	st := NewState(penteNoTournament())
	// Two broken runs joined by the last stone into six.
	play(t, st,
		"K10", "A1",
		"L10", "A2",
		"N10", "A3",
		"O10", "A4",
		"P10", "A5",
		"M10",
	)
	assert.Equal(t, Black, st.Winner())
}

func TestFiveAtBoardEdge(t *testing.T) {
	st := NewState(penteNoTournament())
	play(t, st,
		"K10", "T19",
		"A1", "S19",
		"A2", "R19",
		"A3", "Q19",
		"A4", "P19",
		"A5",
	)
	assert.Equal(t, Black, st.Winner())
}

func TestCaptureWinThreshold(t *testing.T) {
	cfg := penteNoTournament()
	cfg.CapturesToWin = 2
	st := NewState(cfg)
	play(t, st, "K10", "L10", "J10", "M10")
	assert.Equal(t, None, st.Winner())
	play(t, st, "N10")
	assert.Equal(t, Black, st.Winner())
	assert.True(t, st.IsTerminal())
}

func TestLegalMovesMatchDilationInvariant(t *testing.T) {
	st := NewState(PenteConfig())
	play(t, st, "K10", "L9", "N10", "M7", "L10", "H8")

	// Past the opening the radius is the configured distance 1: the
	// legal set must be exactly the empty dilation ring.
	expected := st.MovesWithin(1)
	sort.Slice(expected, func(i, j int) bool { return expected[i].Index() < expected[j].Index() })
	assert.Equal(t, expected, sortedLegal(st))

	// White captures the K10-L10 pair; the recomputed set must stay
	// exact after stones leave the board.
	play(t, st, "A1", "J10", "B1", "M10")
	require.Equal(t, 2, st.CapturesOf(White))
	expected = st.MovesWithin(1)
	sort.Slice(expected, func(i, j int) bool { return expected[i].Index() < expected[j].Index() })
	assert.Equal(t, expected, sortedLegal(st))
}

func TestOpeningUsesWiderRadius(t *testing.T) {
	st := NewState(PenteConfig())
	play(t, st, "K10")
	// With only the centre stone, the opening radius 2 exposes the
	// full 5x5 ring minus the stone itself.
	assert.Len(t, st.LegalMoves(), 24)
}

func TestMakeUndoRoundTripLongSequence(t *testing.T) {
	st := NewState(keryoNoTournament())
	fresh := NewState(keryoNoTournament())
	freshLegal := sortedLegal(fresh)

	seq := []string{"K10", "L10", "J10", "M10", "N10", "L9", "L11", "K9", "M8", "J8"}
	play(t, st, seq...)

	for range seq {
		st.UndoMove()
	}

	assert.True(t, st.Equal(fresh))
	assert.Equal(t, 0, st.MoveCount())
	assert.Equal(t, freshLegal, sortedLegal(st))
	black, white := st.Bitboards()
	assert.True(t, black.IsEmpty())
	assert.True(t, white.IsEmpty())
}

func TestUndoOnEmptyHistoryIsNoOp(t *testing.T) {
	st := NewState(PenteConfig())
	st.UndoMove()
	assert.Equal(t, 0, st.MoveCount())
	assert.Equal(t, Black, st.SideToMove())
}

func TestStonesNeverOverlap(t *testing.T) {
	st := NewState(penteNoTournament())
	// Includes a capture and a replay onto a freed cell.
	play(t, st, "K10", "L10", "J10", "M10", "N10", "L9", "L10")
	black, white := st.Bitboards()
	assert.True(t, black.And(white).IsEmpty())
}

func TestCloneIndependence(t *testing.T) {
	st := NewState(PenteConfig())
	play(t, st, "K10", "L9", "N10")

	clone := st.Clone()
	require.True(t, clone.Equal(st))

	play(t, clone, "M7", "L10")
	assert.Equal(t, 3, st.MoveCount())
	assert.Equal(t, 5, clone.MoveCount())
	assert.Equal(t, None, st.StoneAt(10, 9))

	clone.UndoMove()
	clone.UndoMove()
	assert.True(t, clone.Equal(st))
	assert.Equal(t, sortedLegal(st), sortedLegal(clone))
}

func TestMoveHistoryAccessors(t *testing.T) {
	st := NewState(PenteConfig())
	play(t, st, "K10", "L9")
	assert.Equal(t, mustMove(t, "L9"), st.LastMove())
	assert.Equal(t, 2, st.MoveCount())
}
