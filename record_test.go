package pentemind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentemind/game"
)

func TestParseRecord(t *testing.T) {
	moves, err := ParseRecord("1. K10 L9 2. N10 M7")
	require.NoError(t, err)
	assert.Equal(t, []game.Move{
		mv(t, "K10"), mv(t, "L9"), mv(t, "N10"), mv(t, "M7"),
	}, moves)
}

func TestParseRecordOddWhitespace(t *testing.T) {
	moves, err := ParseRecord("  1.\tK10   L9\n2. N10 M7 ")
	require.NoError(t, err)
	assert.Len(t, moves, 4)
}

func TestParseRecordBadMove(t *testing.T) {
	_, err := ParseRecord("1. K10 I9")
	assert.Error(t, err)
}

func TestReplayMatchesDirectPlay(t *testing.T) {
	replayed, err := Replay("1. K10 L9 2. N10 M7", game.PenteConfig())
	require.NoError(t, err)

	direct := game.NewState(game.PenteConfig())
	for _, s := range []string{"K10", "L9", "N10", "M7"} {
		require.NoError(t, direct.MakeMove(mv(t, s)))
	}

	assert.True(t, replayed.Equal(direct))
	assert.Equal(t, direct.MoveCount(), replayed.MoveCount())
	assert.Equal(t, direct.Hash(), replayed.Hash())
}

func TestReplayThenUndoAllRestoresInitial(t *testing.T) {
	st, err := Replay("1. K10 L9 2. N10 M7", game.PenteConfig())
	require.NoError(t, err)

	for st.MoveCount() > 0 {
		st.UndoMove()
	}

	fresh := game.NewState(game.PenteConfig())
	assert.True(t, st.Equal(fresh))
	assert.Equal(t, fresh.Hash(), st.Hash())
	require.Len(t, st.LegalMoves(), 1)
	assert.Equal(t, game.NewMove(9, 9), st.LegalMoves()[0])
}

func TestReplayRejectsIllegalSequence(t *testing.T) {
	_, err := Replay("1. A1 B2", game.PenteConfig())
	assert.Error(t, err)
}

func TestReplayRespectsTournamentRule(t *testing.T) {
	// L10 on the third ply violates the restriction under Pente rules.
	_, err := Replay("1. K10 L9 2. L10 M7", game.PenteConfig())
	assert.Error(t, err)

	cfg := game.PenteConfig()
	cfg.TournamentRule = false
	_, err = Replay("1. K10 L9 2. L10 M7", cfg)
	assert.NoError(t, err)
}
