package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStableAcrossMakeUndo(t *testing.T) {
	st := NewState(penteNoTournament())
	play(t, st, "K10", "L10", "J10")
	h := st.Hash()

	play(t, st, "M10", "N10") // includes a capture
	st.UndoMove()
	st.UndoMove()

	assert.Equal(t, h, st.Hash())
}

func TestHashDistinguishesSideToMove(t *testing.T) {
	// Same stones, different player to move.
	a := NewState(penteNoTournament())
	play(t, a, "K10", "L10")

	b := NewState(penteNoTournament())
	play(t, b, "K10", "L10", "A1")
	b.UndoMove()
	require.Equal(t, a.Hash(), b.Hash())

	b.sideToMove = b.sideToMove.Other()
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHashTransposition(t *testing.T) {
	// Different move orders reaching the same stones hash alike.
	a := NewState(penteNoTournament())
	play(t, a, "K10", "L10", "M11", "N12")

	b := NewState(penteNoTournament())
	play(t, b, "K10", "N12", "M11", "L10")

	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHashChangesOnCapture(t *testing.T) {
	st := NewState(penteNoTournament())
	play(t, st, "K10", "L10", "J10", "M10")
	h := st.Hash()
	play(t, st, "N10")
	assert.NotEqual(t, h, st.Hash())
}

func TestHashDeterministicAcrossStates(t *testing.T) {
	a := NewState(PenteConfig())
	b := NewState(PenteConfig())
	play(t, a, "K10", "L9")
	play(t, b, "K10", "L9")
	assert.Equal(t, a.Hash(), b.Hash())
}
