package game

import (
	"github.com/pkg/errors"
)

// ErrIllegalMove is returned by MakeMove for off-board cells, occupied
// cells, a non-centre first move, and tournament-rule violations. The
// state is untouched when it is returned.
var ErrIllegalMove = errors.New("game: illegal move")

// Player identifies a side. None doubles as "no winner yet".
type Player uint8

const (
	None Player = iota
	Black
	White
)

func (p Player) String() string {
	switch p {
	case Black:
		return "Black"
	case White:
		return "White"
	}
	return "None"
}

// Other returns the opponent.
func (p Player) Other() Player {
	switch p {
	case Black:
		return White
	case White:
		return Black
	}
	return None
}

// CaptureRule selects the flanking-capture variant.
type CaptureRule int

const (
	CaptureNone          CaptureRule = iota // Gomoku
	CapturePair                             // Pente: X O O X
	CapturePairOrTriplet                    // Keryo: additionally X O O O X
)

// Config is the rule set for one game.
type Config struct {
	CaptureRule      CaptureRule
	CapturesToWin    int  // 10 for Pente, 15 for Keryo
	TournamentRule   bool // third ply excluded from the centre 5x5
	DilationDistance int  // legal-move neighbourhood radius, 1 or 2

	// OpeningRing is the fallback move set for the third ply when the
	// tournament rule empties the derived legal set. Defaults to eight
	// spots on the ring at Chebyshev distance exactly 3 from centre.
	OpeningRing []Move
}

// PenteConfig returns standard Pente rules.
func PenteConfig() Config {
	return Config{
		CaptureRule:      CapturePair,
		CapturesToWin:    10,
		TournamentRule:   true,
		DilationDistance: 1,
	}
}

// GomokuConfig returns Gomoku rules: no captures, five in a row only.
func GomokuConfig() Config {
	return Config{
		CaptureRule:      CaptureNone,
		CapturesToWin:    10,
		TournamentRule:   true,
		DilationDistance: 1,
	}
}

// KeryoConfig returns Keryo-Pente rules: triplet captures, 15 to win.
func KeryoConfig() Config {
	return Config{
		CaptureRule:      CapturePairOrTriplet,
		CapturesToWin:    15,
		TournamentRule:   true,
		DilationDistance: 1,
	}
}

func defaultOpeningRing() []Move {
	c := BoardSize / 2
	return []Move{
		NewMove(c-3, c-3), NewMove(c, c-3), NewMove(c+3, c-3),
		NewMove(c-3, c), NewMove(c+3, c),
		NewMove(c-3, c+3), NewMove(c, c+3), NewMove(c+3, c+3),
	}
}

// MoveInfo is one history entry: everything needed to undo the move in
// O(1), including the legal-move-set diff it caused.
type MoveInfo struct {
	Move        Move
	Player      Player
	CaptureMask uint16 // 8 directions x 2 bits: 01 pair, 10 triplet
	Captured    uint8  // total stones removed by this move

	addedLegal   []Move // cells this move added to the legal set
	removedLegal []Move // cells this move removed from the legal set
}

// The eight outward directions, index-aligned with CaptureMask.
var dirs = [8][2]int{
	{0, 1}, {1, 0}, {1, 1}, {-1, 1},
	{0, -1}, {-1, 0}, {-1, -1}, {1, -1},
}

const noLegalIndex = -1

// State is a full Pente-family game position with undo support.
//
// The legal-move set is kept as a vector plus a cell->index table so
// membership, insert and swap-remove are all O(1). Each MoveInfo
// records the set diff its move caused, which is what makes UndoMove
// O(1) inside the search loop.
type State struct {
	cfg Config

	black, white  Bitboard
	sideToMove    Player
	blackCaptures int
	whiteCaptures int

	history []MoveInfo

	legal      []Move
	legalIndex [BoardCells]int32
}

// NewState returns a reset state under the given rules.
func NewState(cfg Config) *State {
	if cfg.DilationDistance <= 0 {
		cfg.DilationDistance = 1
	}
	if cfg.OpeningRing == nil {
		cfg.OpeningRing = defaultOpeningRing()
	}
	s := &State{cfg: cfg}
	s.Reset()
	return s
}

// Reset clears stones, history and counters and installs the centre
// cell as the only legal opening move.
func (s *State) Reset() {
	s.black = Bitboard{}
	s.white = Bitboard{}
	s.sideToMove = Black
	s.blackCaptures = 0
	s.whiteCaptures = 0
	s.history = s.history[:0]
	s.legal = s.legal[:0]
	for i := range s.legalIndex {
		s.legalIndex[i] = noLegalIndex
	}
	s.addLegal(NewMove(BoardSize/2, BoardSize/2), nil)
}

// Rules returns the active rule set.
func (s *State) Rules() Config { return s.cfg }

// SideToMove returns the player whose turn it is.
func (s *State) SideToMove() Player { return s.sideToMove }

// MoveCount returns how many moves have been played.
func (s *State) MoveCount() int { return len(s.history) }

// LastMove returns the most recent move, or the sentinel before any.
func (s *State) LastMove() Move {
	if len(s.history) == 0 {
		return NoMove()
	}
	return s.history[len(s.history)-1].Move
}

// CapturesOf returns the number of stones p has captured.
func (s *State) CapturesOf(p Player) int {
	if p == Black {
		return s.blackCaptures
	}
	if p == White {
		return s.whiteCaptures
	}
	return 0
}

// StoneAt reports which player occupies (x, y).
func (s *State) StoneAt(x, y int) Player {
	if s.black.Test(x, y) {
		return Black
	}
	if s.white.Test(x, y) {
		return White
	}
	return None
}

// Bitboards returns copies of the black and white stone boards.
func (s *State) Bitboards() (black, white Bitboard) {
	return s.black, s.white
}

// Occupied returns the union of both stone boards.
func (s *State) Occupied() Bitboard {
	return s.black.Or(s.white)
}

// LegalMoves returns a view of the maintained legal-move set. The
// slice is owned by the state; callers must not hold it across a
// MakeMove or UndoMove.
func (s *State) LegalMoves() []Move {
	return s.legal
}

// IsLegal reports membership in the maintained legal-move set.
func (s *State) IsLegal(m Move) bool {
	if !m.IsValid() {
		return false
	}
	return s.legalIndex[m.Index()] != noLegalIndex
}

// MovesWithin returns every empty cell within Chebyshev distance d of
// an occupied cell, computed fresh from the bitboards.
func (s *State) MovesWithin(d int) []Move {
	occ := s.Occupied()
	var reach Bitboard
	if d >= 2 {
		reach = occ.Dilate2()
	} else {
		reach = occ.Dilate()
	}
	reach = reach.AndNot(occ)
	moves := make([]Move, 0, reach.Count())
	reach.ForEach(func(idx int) {
		moves = append(moves, NewMove(idx%BoardSize, idx/BoardSize))
	})
	return moves
}

// effectiveDistance is the neighbourhood radius for the legal set at
// the given move count. The opening is widened to 2 so early play is
// not starved of candidates.
func (s *State) effectiveDistance(moveCount int) int {
	if moveCount <= 3 && s.cfg.DilationDistance < 2 {
		return 2
	}
	return s.cfg.DilationDistance
}

// insideTournamentBox reports whether m sits in the restricted 5x5
// centre square the tournament rule forbids on the third ply.
func insideTournamentBox(m Move) bool {
	c := BoardSize / 2
	dx := int(m.X) - c
	if dx < 0 {
		dx = -dx
	}
	dy := int(m.Y) - c
	if dy < 0 {
		dy = -dy
	}
	return dx < 3 && dy < 3
}

// MakeMove validates and plays m for the side to move. On rejection
// the state is unchanged and ErrIllegalMove is returned (wrapped with
// the offending coordinate).
func (s *State) MakeMove(m Move) error {
	if !m.IsValid() {
		return errors.Wrapf(ErrIllegalMove, "off board %v", m)
	}
	if s.black.Test(int(m.X), int(m.Y)) || s.white.Test(int(m.X), int(m.Y)) {
		return errors.Wrapf(ErrIllegalMove, "occupied %v", m)
	}
	moveCount := len(s.history)
	if moveCount == 0 {
		if int(m.X) != BoardSize/2 || int(m.Y) != BoardSize/2 {
			return errors.Wrapf(ErrIllegalMove, "first move must be the centre, got %v", m)
		}
	}
	if moveCount == 2 && s.cfg.TournamentRule && insideTournamentBox(m) {
		return errors.Wrapf(ErrIllegalMove, "tournament rule forbids %v", m)
	}

	mover := s.sideToMove
	if mover == Black {
		s.black.Set(int(m.X), int(m.Y))
	} else {
		s.white.Set(int(m.X), int(m.Y))
	}

	info := MoveInfo{Move: m, Player: mover}
	if s.cfg.CaptureRule != CaptureNone {
		s.checkAndCapture(m, mover, &info)
	}
	if mover == Black {
		s.blackCaptures += int(info.Captured)
	} else {
		s.whiteCaptures += int(info.Captured)
	}

	s.updateLegalAfterMove(m, &info)

	s.history = append(s.history, info)
	s.sideToMove = mover.Other()
	return nil
}

// checkAndCapture scans the eight outward directions from the placed
// stone for flanking patterns, removes captured stones and records the
// per-direction capture type in the 2-bit mask.
func (s *State) checkAndCapture(m Move, mover Player, info *MoveInfo) {
	my, opp := &s.black, &s.white
	if mover == White {
		my, opp = &s.white, &s.black
	}
	x, y := int(m.X), int(m.Y)

	for i, d := range dirs {
		dx, dy := d[0], d[1]

		// Keryo triplet first: X O O O X.
		if s.cfg.CaptureRule == CapturePairOrTriplet {
			x4, y4 := x+dx*4, y+dy*4
			if x4 >= 0 && x4 < BoardSize && y4 >= 0 && y4 < BoardSize &&
				opp.Test(x+dx, y+dy) &&
				opp.Test(x+dx*2, y+dy*2) &&
				opp.Test(x+dx*3, y+dy*3) &&
				my.Test(x4, y4) {
				opp.Clear(x+dx, y+dy)
				opp.Clear(x+dx*2, y+dy*2)
				opp.Clear(x+dx*3, y+dy*3)
				info.Captured += 3
				info.CaptureMask |= 2 << uint(i*2)
				continue
			}
		}

		// Standard pair: X O O X. The bounds check on the bracketing
		// stone keeps edge captures from reading past the board.
		x3, y3 := x+dx*3, y+dy*3
		if x3 >= 0 && x3 < BoardSize && y3 >= 0 && y3 < BoardSize &&
			opp.Test(x+dx, y+dy) &&
			opp.Test(x+dx*2, y+dy*2) &&
			my.Test(x3, y3) {
			opp.Clear(x+dx, y+dy)
			opp.Clear(x+dx*2, y+dy*2)
			info.Captured += 2
			info.CaptureMask |= 1 << uint(i*2)
		}
	}
}

// UndoMove reverses the last move: stone, captured stones, counters,
// side to move and the legal-move set. A no-op on empty history.
func (s *State) UndoMove() {
	if len(s.history) == 0 {
		return
	}
	info := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	s.sideToMove = info.Player
	x, y := int(info.Move.X), int(info.Move.Y)

	my, opp := &s.black, &s.white
	if info.Player == White {
		my, opp = &s.white, &s.black
	}
	my.Clear(x, y)

	if info.Player == Black {
		s.blackCaptures -= int(info.Captured)
	} else {
		s.whiteCaptures -= int(info.Captured)
	}

	if info.Captured > 0 {
		for i, d := range dirs {
			kind := info.CaptureMask >> uint(i*2) & 0x03
			if kind == 0 {
				continue
			}
			dx, dy := d[0], d[1]
			opp.Set(x+dx, y+dy)
			opp.Set(x+dx*2, y+dy*2)
			if kind == 2 {
				opp.Set(x+dx*3, y+dy*3)
			}
		}
	}

	// Reverse the legal-set diff.
	for i := len(info.addedLegal) - 1; i >= 0; i-- {
		s.removeLegal(info.addedLegal[i], nil)
	}
	for i := len(info.removedLegal) - 1; i >= 0; i-- {
		s.addLegal(info.removedLegal[i], nil)
	}
}

// Winner returns Black or White once five in a row or the capture
// threshold is reached, and None otherwise. Five in a row is checked
// through the last move only; every earlier line was checked when its
// own move was made.
func (s *State) Winner() Player {
	if len(s.history) > 0 {
		last := s.history[len(s.history)-1]
		if s.hasFiveThrough(last.Move, last.Player) {
			return last.Player
		}
	}
	if s.cfg.CaptureRule != CaptureNone {
		if s.blackCaptures >= s.cfg.CapturesToWin {
			return Black
		}
		if s.whiteCaptures >= s.cfg.CapturesToWin {
			return White
		}
	}
	return None
}

// IsTerminal reports whether the game is over: a winner exists or no
// legal move remains (a draw on a saturated board).
func (s *State) IsTerminal() bool {
	return s.Winner() != None || len(s.legal) == 0
}

var lineDirs = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

func (s *State) hasFiveThrough(m Move, p Player) bool {
	if !m.IsValid() {
		return false
	}
	stones := s.black
	if p == White {
		stones = s.white
	}
	x, y := int(m.X), int(m.Y)
	for _, d := range lineDirs {
		count := 1 +
			runLength(stones, x, y, d[0], d[1]) +
			runLength(stones, x, y, -d[0], -d[1])
		if count >= 5 {
			return true
		}
	}
	return false
}

// runLength walks outward from (x, y) while stones persist. Six or
// more in a row still wins; only the count matters.
func runLength(stones Bitboard, x, y, dx, dy int) int {
	n := 0
	nx, ny := x+dx, y+dy
	for nx >= 0 && nx < BoardSize && ny >= 0 && ny < BoardSize && stones.Test(nx, ny) {
		n++
		nx += dx
		ny += dy
	}
	return n
}

// Clone returns an independent copy. History entries share their diff
// slices with the original: a clone only ever undoes moves it made
// itself, so those shared entries are read-only to it.
func (s *State) Clone() *State {
	c := *s
	c.history = make([]MoveInfo, len(s.history), len(s.history)+64)
	copy(c.history, s.history)
	c.legal = make([]Move, len(s.legal), cap(s.legal))
	copy(c.legal, s.legal)
	return &c
}

// Equal reports position equality: stones, captures and side to move.
func (s *State) Equal(o *State) bool {
	return s.black == o.black && s.white == o.white &&
		s.sideToMove == o.sideToMove &&
		s.blackCaptures == o.blackCaptures &&
		s.whiteCaptures == o.whiteCaptures
}

// --- legal-move set maintenance ---

func (s *State) addLegal(m Move, info *MoveInfo) {
	idx := m.Index()
	if idx < 0 || s.legalIndex[idx] != noLegalIndex {
		return
	}
	s.legal = append(s.legal, m)
	s.legalIndex[idx] = int32(len(s.legal) - 1)
	if info != nil {
		info.addedLegal = append(info.addedLegal, m)
	}
}

func (s *State) removeLegal(m Move, info *MoveInfo) {
	idx := m.Index()
	if idx < 0 {
		return
	}
	at := s.legalIndex[idx]
	if at == noLegalIndex {
		return
	}
	lastAt := len(s.legal) - 1
	if int(at) != lastAt {
		moved := s.legal[lastAt]
		s.legal[at] = moved
		s.legalIndex[moved.Index()] = at
	}
	s.legal = s.legal[:lastAt]
	s.legalIndex[idx] = noLegalIndex
	if info != nil {
		info.removedLegal = append(info.removedLegal, m)
	}
}

// updateLegalAfterMove maintains the invariant: a cell is legal iff it
// is empty and within the effective radius of an occupied cell, with
// the tournament-rule adjustment on the third ply.
//
// The fast path (no captures, stable radius, past the opening) only
// touches the placed cell and its fresh neighbours. Captures, the
// opening radius changes and the tournament filter all fall back to a
// bit-parallel recompute whose diff is still recorded for O(1) undo.
func (s *State) updateLegalAfterMove(m Move, info *MoveInfo) {
	newCount := len(s.history) + 1

	s.removeLegal(m, info)

	if info.Captured > 0 || newCount <= 4 {
		s.recomputeLegal(newCount, info)
		return
	}

	d := s.effectiveDistance(newCount)
	occ := s.Occupied()
	x, y := int(m.X), int(m.Y)
	for dy := -d; dy <= d; dy++ {
		for dx := -d; dx <= d; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= BoardSize || ny < 0 || ny >= BoardSize {
				continue
			}
			if !occ.Test(nx, ny) {
				s.addLegal(NewMove(nx, ny), info)
			}
		}
	}
}

// recomputeLegal rebuilds the legal set from the dilated occupancy and
// records the diff against the current set in info.
func (s *State) recomputeLegal(moveCount int, info *MoveInfo) {
	occ := s.Occupied()
	var target Bitboard
	if s.effectiveDistance(moveCount) >= 2 {
		target = occ.Dilate2()
	} else {
		target = occ.Dilate()
	}
	target = target.AndNot(occ)

	if s.cfg.TournamentRule && moveCount == 2 {
		c := BoardSize / 2
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				target.Clear(c+dx, c+dy)
			}
		}
		if target.IsEmpty() {
			// Fall back to the configured opening spots.
			for _, m := range s.cfg.OpeningRing {
				if m.IsValid() && !occ.Test(int(m.X), int(m.Y)) {
					target.Set(int(m.X), int(m.Y))
				}
			}
		}
	}

	// Drop cells that left the set. Walk backwards so swap-remove
	// never skips an entry.
	for i := len(s.legal) - 1; i >= 0; i-- {
		mv := s.legal[i]
		if !target.TestIndex(mv.Index()) {
			s.removeLegal(mv, info)
		}
	}
	// Add cells that entered it.
	target.ForEach(func(idx int) {
		if s.legalIndex[idx] == noLegalIndex {
			s.addLegal(NewMove(idx%BoardSize, idx/BoardSize), info)
		}
	})
}
