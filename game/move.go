package game

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// invalidCoord marks a coordinate that is not on the board.
const invalidCoord = 255

// Move is a board coordinate, packed into two bytes. The zero value of
// a coordinate is a real cell, so "no move" is the explicit sentinel
// returned by NoMove.
type Move struct {
	X, Y uint8
}

// NoMove returns the invalid-move sentinel.
func NoMove() Move {
	return Move{X: invalidCoord, Y: invalidCoord}
}

// NewMove builds a move from ints; coordinates off the board collapse
// to the invalid sentinel.
func NewMove(x, y int) Move {
	if x < 0 || x >= BoardSize || y < 0 || y >= BoardSize {
		return NoMove()
	}
	return Move{X: uint8(x), Y: uint8(y)}
}

// IsValid reports whether the move names a cell on the board.
func (m Move) IsValid() bool {
	return m.X < BoardSize && m.Y < BoardSize
}

// Index returns the linear cell index y*19+x, or -1 for the sentinel.
func (m Move) Index() int {
	if !m.IsValid() {
		return -1
	}
	return int(m.Y)*BoardSize + int(m.X)
}

// String renders the move in board notation: column letter A-T skipping
// I, row number 1-19 counted from the bottom. (9,9) is "K10".
func (m Move) String() string {
	if !m.IsValid() {
		return "--"
	}
	col := byte('A' + m.X)
	if col >= 'I' {
		col++ // the letter I is not used
	}
	return string(col) + strconv.Itoa(int(m.Y)+1)
}

// ParseMove parses board notation such as "K10" back into a Move.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) < 2 {
		return NoMove(), errors.Errorf("game: malformed move %q", s)
	}
	col := s[0]
	if col < 'A' || col > 'T' || col == 'I' {
		return NoMove(), errors.Errorf("game: bad column in move %q", s)
	}
	if col > 'I' {
		col-- // undo the I skip
	}
	x := int(col - 'A')

	y, err := strconv.Atoi(s[1:])
	if err != nil {
		return NoMove(), errors.Wrapf(err, "game: bad row in move %q", s)
	}
	y-- // rows are 1-based in notation
	if y < 0 || y >= BoardSize {
		return NoMove(), errors.Errorf("game: row out of range in move %q", s)
	}
	return Move{X: uint8(x), Y: uint8(y)}, nil
}
