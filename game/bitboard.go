package game

import "math/bits"

// Board dimensions. The whole engine is specialised to the 19x19
// Pente-family board; cell (x, y) lives at bit index y*BoardSize+x.
const (
	BoardSize  = 19
	BoardCells = BoardSize * BoardSize // 361
	numWords   = 6                     // 6*64 = 384 bits, 361 used
)

// Bitboard packs one colour's stones into six 64-bit words. Bits at
// index >= BoardCells are always zero; Not re-masks to preserve that.
type Bitboard [numWords]uint64

// Column masks used to stop horizontal shifts from wrapping a stone on
// the edge column into the next row of the linear layout. Built once at
// package init and shared read-only.
var (
	maskNotCol0    Bitboard // everything except column 0
	maskNotCol18   Bitboard // everything except column 18
	maskNotCol01   Bitboard // everything except columns 0 and 1
	maskNotCol1718 Bitboard // everything except columns 17 and 18
	maskValid      Bitboard // the 361 on-board bits
)

func init() {
	for i := 0; i < BoardCells; i++ {
		maskValid[i>>6] |= 1 << uint(i&63)
	}
	maskNotCol0 = maskValid
	maskNotCol18 = maskValid
	maskNotCol01 = maskValid
	maskNotCol1718 = maskValid
	for y := 0; y < BoardSize; y++ {
		punch := func(b *Bitboard, x int) {
			i := y*BoardSize + x
			b[i>>6] &^= 1 << uint(i&63)
		}
		punch(&maskNotCol0, 0)
		punch(&maskNotCol18, 18)
		punch(&maskNotCol01, 0)
		punch(&maskNotCol01, 1)
		punch(&maskNotCol1718, 17)
		punch(&maskNotCol1718, 18)
	}
}

// Set sets the bit at (x, y). Out of bounds is a no-op.
func (b *Bitboard) Set(x, y int) {
	if x < 0 || x >= BoardSize || y < 0 || y >= BoardSize {
		return
	}
	i := y*BoardSize + x
	b[i>>6] |= 1 << uint(i&63)
}

// Clear clears the bit at (x, y). Out of bounds is a no-op.
func (b *Bitboard) Clear(x, y int) {
	if x < 0 || x >= BoardSize || y < 0 || y >= BoardSize {
		return
	}
	i := y*BoardSize + x
	b[i>>6] &^= 1 << uint(i&63)
}

// Test reports whether the bit at (x, y) is set. Out of bounds reads false.
func (b Bitboard) Test(x, y int) bool {
	if x < 0 || x >= BoardSize || y < 0 || y >= BoardSize {
		return false
	}
	i := y*BoardSize + x
	return b[i>>6]>>(uint(i&63))&1 == 1
}

// TestIndex reports whether linear cell index i is set.
func (b Bitboard) TestIndex(i int) bool {
	if i < 0 || i >= BoardCells {
		return false
	}
	return b[i>>6]>>(uint(i&63))&1 == 1
}

// SetIndex sets linear cell index i.
func (b *Bitboard) SetIndex(i int) {
	if i < 0 || i >= BoardCells {
		return
	}
	b[i>>6] |= 1 << uint(i&63)
}

// Or returns the union of two boards.
func (b Bitboard) Or(other Bitboard) Bitboard {
	var r Bitboard
	for i := range b {
		r[i] = b[i] | other[i]
	}
	return r
}

// And returns the intersection of two boards.
func (b Bitboard) And(other Bitboard) Bitboard {
	var r Bitboard
	for i := range b {
		r[i] = b[i] & other[i]
	}
	return r
}

// AndNot returns b with other's bits removed.
func (b Bitboard) AndNot(other Bitboard) Bitboard {
	var r Bitboard
	for i := range b {
		r[i] = b[i] &^ other[i]
	}
	return r
}

// Not returns the complement, re-masked to the 361 on-board bits so the
// junk area above bit 360 never leaks into move generation.
func (b Bitboard) Not() Bitboard {
	var r Bitboard
	for i := range b {
		r[i] = ^b[i] & maskValid[i]
	}
	return r
}

// IsEmpty reports whether no bit is set.
func (b Bitboard) IsEmpty() bool {
	for i := range b {
		if b[i] != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (b Bitboard) Count() int {
	n := 0
	for i := range b {
		n += bits.OnesCount64(b[i])
	}
	return n
}

// ForEach calls f with the linear index of every set bit, ascending.
func (b Bitboard) ForEach(f func(idx int)) {
	for w := range b {
		word := b[w]
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			f(w<<6 + bit)
			word &= word - 1
		}
	}
}

// shift moves every bit by count positions in the linear layout.
// Positive counts move toward higher indices (up the board). Callers
// must pre-mask edge columns before horizontal components of a shift.
func (b Bitboard) shift(count int) Bitboard {
	var r Bitboard
	if count >= 0 {
		wordShift := count >> 6
		bitShift := uint(count & 63)
		for i := 0; i < numWords; i++ {
			t := i + wordShift
			if t >= numWords {
				break
			}
			r[t] |= b[i] << bitShift
			if t+1 < numWords && bitShift > 0 {
				r[t+1] |= b[i] >> (64 - bitShift)
			}
		}
	} else {
		c := -count
		wordShift := c >> 6
		bitShift := uint(c & 63)
		for i := numWords - 1; i >= 0; i-- {
			t := i - wordShift
			if t < 0 {
				continue
			}
			r[t] |= b[i] >> bitShift
			if t-1 >= 0 && bitShift > 0 {
				r[t-1] |= b[i] << (64 - bitShift)
			}
		}
	}
	return r
}

// orShifted ORs source shifted by count into b, in place.
func (b *Bitboard) orShifted(count int, source Bitboard) {
	s := source.shift(count)
	for i := range b {
		b[i] |= s[i]
	}
}

// Dilate returns the Chebyshev-radius-1 expansion: every cell within
// the 8-neighbourhood of a set cell (plus the cell itself), clipped to
// the board.
func (b Bitboard) Dilate() Bitboard {
	res := b

	// Vertical shifts cannot wrap between rows.
	res.orShifted(BoardSize, b)
	res.orShifted(-BoardSize, b)

	maskL := b.And(maskNotCol0)
	maskR := b.And(maskNotCol18)

	res.orShifted(-1, maskL)
	res.orShifted(1, maskR)

	res.orShifted(-BoardSize-1, maskL)
	res.orShifted(BoardSize-1, maskL)
	res.orShifted(-BoardSize+1, maskR)
	res.orShifted(BoardSize+1, maskR)

	// Shifting the top rows forward lands in the dead bits above 360.
	return res.And(maskValid)
}

// Dilate2 returns the Chebyshev-radius-2 expansion (the full 5x5
// neighbourhood of every set cell).
func (b Bitboard) Dilate2() Bitboard {
	res := b.Dilate()

	res.orShifted(2*BoardSize, b)
	res.orShifted(-2*BoardSize, b)

	maskL2 := b.And(maskNotCol01)
	maskR2 := b.And(maskNotCol1718)

	res.orShifted(-2, maskL2)
	res.orShifted(2, maskR2)

	res.orShifted(-2*BoardSize-2, maskL2)
	res.orShifted(-2*BoardSize+2, maskR2)
	res.orShifted(2*BoardSize-2, maskL2)
	res.orShifted(2*BoardSize+2, maskR2)

	maskL1 := b.And(maskNotCol0)
	maskR1 := b.And(maskNotCol18)

	// Knight-distance cells of the 5x5 ring.
	res.orShifted(-2*BoardSize-1, maskL1)
	res.orShifted(-2*BoardSize+1, maskR1)
	res.orShifted(2*BoardSize-1, maskL1)
	res.orShifted(2*BoardSize+1, maskR1)

	res.orShifted(-BoardSize-2, maskL2)
	res.orShifted(-BoardSize+2, maskR2)
	res.orShifted(BoardSize-2, maskL2)
	res.orShifted(BoardSize+2, maskR2)

	return res.And(maskValid)
}
