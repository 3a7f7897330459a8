package game

// Tactical weights for ScoreMove. Every legal move starts from the
// baseline; the rest are per-direction bonuses.
const (
	scoreBaseline      float32 = 1
	scoreCapture       float32 = 6  // completes a flanking capture
	scoreBlockCapture  float32 = 4  // denies an opponent capture of our pair
	scoreOpenThree     float32 = 15 // creates an open three, solid or gapped
	scoreBlockThree    float32 = 20 // occupies the open end of an opponent three
	scoreMakeFour      float32 = 30 // creates a four with a live end
	scoreBlockFour     float32 = 50 // plugs an opponent four
	scoreWinningPlace  float32 = 1000
)

// ScoreMove rates playing m for the side to move without mutating the
// state. The score is deterministic and at least the baseline for any
// empty cell; occupied or off-board cells score zero.
//
// Captures are evaluated on the stones as they stand; the virtual
// placement is only considered for line patterns.
func (s *State) ScoreMove(m Move) float32 {
	if !m.IsValid() {
		return 0
	}
	x, y := int(m.X), int(m.Y)
	if s.black.Test(x, y) || s.white.Test(x, y) {
		return 0
	}

	my, opp := s.black, s.white
	if s.sideToMove == White {
		my, opp = s.white, s.black
	}

	score := scoreBaseline

	// Flanking patterns, eight directions.
	for _, d := range dirs {
		dx, dy := d[0], d[1]
		if s.cfg.CaptureRule != CaptureNone {
			if s.cfg.CaptureRule == CapturePairOrTriplet &&
				opp.Test(x+dx, y+dy) && opp.Test(x+dx*2, y+dy*2) &&
				opp.Test(x+dx*3, y+dy*3) && my.Test(x+dx*4, y+dy*4) {
				score += scoreCapture
				continue
			}
			if opp.Test(x+dx, y+dy) && opp.Test(x+dx*2, y+dy*2) && my.Test(x+dx*3, y+dy*3) {
				score += scoreCapture
				continue
			}
			// Our exposed pair: playing here closes the bracket the
			// opponent needs for X O O X.
			if my.Test(x+dx, y+dy) && my.Test(x+dx*2, y+dy*2) && opp.Test(x+dx*3, y+dy*3) {
				score += scoreBlockCapture
			}
		}
	}

	// Line patterns, four directions, virtual stone at (x, y).
	placed := my
	placed.Set(x, y)
	for _, d := range lineDirs {
		dx, dy := d[0], d[1]

		fwd := runLength(placed, x, y, dx, dy)
		bwd := runLength(placed, x, y, -dx, -dy)
		run := 1 + fwd + bwd

		if run >= 5 {
			score += scoreWinningPlace
		} else if run == 4 {
			if cellEmpty(s, x+dx*(fwd+1), y+dy*(fwd+1)) ||
				cellEmpty(s, x-dx*(bwd+1), y-dy*(bwd+1)) {
				score += scoreMakeFour
			}
		} else if s.makesOpenThree(placed, x, y, dx, dy) {
			score += scoreOpenThree
		}

		// Opponent runs ending at this cell, both orientations.
		score += s.blockBonus(opp, x, y, dx, dy)
		score += s.blockBonus(opp, x, y, -dx, -dy)
		oppFwd := runLength(opp, x, y, dx, dy)
		oppBwd := runLength(opp, x, y, -dx, -dy)
		if oppFwd < 4 && oppBwd < 4 && oppFwd+oppBwd >= 4 {
			// Gap inside a split four.
			score += scoreBlockFour
		}
	}

	return score
}

// blockBonus scores plugging an opponent run that starts right next to
// (x, y) in the given orientation.
func (s *State) blockBonus(opp Bitboard, x, y, dx, dy int) float32 {
	run := runLength(opp, x, y, dx, dy)
	switch {
	case run >= 4:
		return scoreBlockFour
	case run == 3:
		// Only an OPEN three needs answering.
		if cellEmpty(s, x+dx*4, y+dy*4) {
			return scoreBlockThree
		}
	}
	return 0
}

// makesOpenThree reports whether the virtual stone completes an open
// three along (dx, dy): either three in a row with both outer cells
// empty, or a gapped X _ X X span with both span ends open.
func (s *State) makesOpenThree(placed Bitboard, x, y, dx, dy int) bool {
	// Solid: a window of three own stones containing (x, y) with both
	// neighbouring cells empty.
	for off := -2; off <= 0; off++ {
		sx, sy := x+dx*off, y+dy*off
		if placed.Test(sx, sy) &&
			placed.Test(sx+dx, sy+dy) &&
			placed.Test(sx+dx*2, sy+dy*2) &&
			cellEmpty(s, sx-dx, sy-dy) &&
			cellEmpty(s, sx+dx*3, sy+dy*3) {
			return true
		}
	}
	// Gapped: a four-cell span with stones at both ends, exactly one
	// gap inside, and both cells beyond the span empty.
	for off := -3; off <= 0; off++ {
		sx, sy := x+dx*off, y+dy*off
		if !placed.Test(sx, sy) || !placed.Test(sx+dx*3, sy+dy*3) {
			continue
		}
		in1 := placed.Test(sx+dx, sy+dy)
		in2 := placed.Test(sx+dx*2, sy+dy*2)
		if in1 == in2 {
			continue // zero or two gaps
		}
		gx, gy := sx+dx, sy+dy
		if in1 {
			gx, gy = sx+dx*2, sy+dy*2
		}
		if cellEmpty(s, gx, gy) &&
			cellEmpty(s, sx-dx, sy-dy) &&
			cellEmpty(s, sx+dx*4, sy+dy*4) {
			return true
		}
	}
	return false
}

// cellEmpty reports an on-board cell with no stone of either colour.
func cellEmpty(s *State, x, y int) bool {
	if x < 0 || x >= BoardSize || y < 0 || y >= BoardSize {
		return false
	}
	return !s.black.Test(x, y) && !s.white.Test(x, y)
}
