package refmv

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

// finder holds the state of one derivation.
type finder struct {
	c     *Context
	b     Block
	ref   block.RefPair
	gm    [2]mv.MV
	stack Stack
	ctx   int16

	bw, bh int // block size in mi units
}

// addCandidate merges an inter neighbour whose references match the
// requested ones. Matches bump match and, for modes coding a new vector,
// newmv.
func (f *finder) addCandidate(cand *block.ModeInfo, weight uint16, match, newmv *int) {
	if !cand.IsInter() {
		return
	}
	global := &f.c.Frame.Global
	if !f.ref.IsCompound() {
		for i := 0; i < 2; i++ {
			if cand.Ref[i] != f.ref[0] {
				continue
			}
			this := cand.MV[i]
			if global[f.ref[0]].Covers(cand) {
				this = f.gm[0]
			}
			f.stack.merge(mv.Candidate{This: this}, false, weight)
			if cand.Mode.HasNewMV() {
				*newmv++
			}
			*match++
		}
		return
	}
	if cand.Ref != f.ref {
		return
	}
	var c mv.Candidate
	c.This, c.Comp = cand.MV[0], cand.MV[1]
	if global[f.ref[0]].Covers(cand) {
		c.This = f.gm[0]
	}
	if global[f.ref[1]].Covers(cand) {
		c.Comp = f.gm[1]
	}
	f.stack.merge(c, true, weight)
	if cand.Mode.HasNewMV() {
		*newmv++
	}
	*match++
}

// sbMask returns the superblock edge and the block position inside its
// superblock.
func (f *finder) sbMask() (int, int, int) {
	sb := f.c.Coded.SuperblockMi()
	return sb, f.b.MiRow & (sb - 1), f.b.MiCol & (sb - 1)
}

// scanRow walks the row rowOffset units above the block.
func (f *finder) scanRow(rowOffset, maxRowOffset int, processed *int, match, newmv *int) {
	end := min(f.bw, f.c.Frame.MiCols-f.b.MiCol, block.Mi64x64)
	colOffset := 0
	if abs(rowOffset) > 1 {
		colOffset = 1
		if f.b.MiCol&1 != 0 && f.bw < block.Mi8x8 {
			colOffset--
		}
	}
	step16 := f.bw >= block.Mi64x64

	for i := 0; i < end; {
		if f.c.CheckCodedMap && f.c.Coded != nil {
			sb, maskRow, maskCol := f.sbMask()
			r, c := maskRow+rowOffset, maskCol+colOffset+i
			if r >= 0 {
				if c >= sb || !f.c.Coded.Coded(r, c) {
					break
				}
			}
		}
		cand := f.c.Grid.At(f.b.MiRow+rowOffset, f.b.MiCol+colOffset+i)
		if cand == nil {
			break
		}
		n4w := cand.Size.MiWide()
		l := min(f.bw, n4w)
		switch {
		case step16:
			l = max(block.Mi16x16, l)
		case abs(rowOffset) > 1:
			l = max(l, block.Mi8x8)
		}
		weight := 2
		if f.bw >= block.Mi8x8 && f.bw <= n4w {
			inc := min(-maxRowOffset+rowOffset+1, cand.Size.MiHigh())
			weight = max(weight, inc)
			*processed = inc - rowOffset - 1
		}
		f.addCandidate(cand, uint16(l*weight), match, newmv)
		i += l
	}
}

// scanCol walks the column colOffset units left of the block.
func (f *finder) scanCol(colOffset, maxColOffset int, processed *int, match, newmv *int) {
	end := min(f.bh, f.c.Frame.MiRows-f.b.MiRow, block.Mi64x64)
	rowOffset := 0
	if abs(colOffset) > 1 {
		rowOffset = 1
		if f.b.MiRow&1 != 0 && f.bh < block.Mi8x8 {
			rowOffset--
		}
	}
	step16 := f.bh >= block.Mi64x64

	for i := 0; i < end; {
		if f.c.CheckCodedMap && f.c.Coded != nil {
			sb, maskRow, maskCol := f.sbMask()
			r, c := maskRow+rowOffset+i, maskCol+colOffset
			if c >= 0 {
				if r >= sb || !f.c.Coded.Coded(r, c) {
					break
				}
			}
		}
		cand := f.c.Grid.At(f.b.MiRow+rowOffset+i, f.b.MiCol+colOffset)
		if cand == nil {
			break
		}
		n4h := cand.Size.MiHigh()
		l := min(f.bh, n4h)
		switch {
		case step16:
			l = max(block.Mi16x16, l)
		case abs(colOffset) > 1:
			l = max(l, block.Mi8x8)
		}
		weight := 2
		if f.bh >= block.Mi8x8 && f.bh <= n4h {
			inc := min(-maxColOffset+colOffset+1, cand.Size.MiWide())
			weight = max(weight, inc)
			*processed = inc - colOffset - 1
		}
		f.addCandidate(cand, uint16(l*weight), match, newmv)
		i += l
	}
}

// scanBlock probes the single unit at (rowOffset, colOffset).
func (f *finder) scanBlock(rowOffset, colOffset int, match, newmv *int) {
	if !f.c.Tile.Inside(f.b.MiRow, f.b.MiCol, rowOffset, colOffset) {
		return
	}
	cand := f.c.Grid.At(f.b.MiRow+rowOffset, f.b.MiCol+colOffset)
	if cand == nil {
		return
	}
	f.addCandidate(cand, 2*block.Mi8x8, match, newmv)
}

// hasTopRight reports whether the unit above and right of the block is
// decoded. Without a coded map it never is.
func (f *finder) hasTopRight() bool {
	if f.c.Coded == nil {
		return false
	}
	return f.c.Coded.HasTopRight(f.b.MiRow, f.b.MiCol, f.bw)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
