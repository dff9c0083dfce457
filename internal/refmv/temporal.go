package refmv

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

// checkSBBorder reports whether offset (dr, dc) from the block stays in
// its 64x64 area.
func checkSBBorder(miRow, miCol, dr, dc int) bool {
	const sb = block.Mi64x64
	r := (miRow & (sb - 1)) + dr
	c := (miCol & (sb - 1)) + dc
	return r >= 0 && r < sb && c >= 0 && c < sb
}

// addTemporal merges the temporal field unit sampled at (blkRow, blkCol)
// inside the block. It reports whether the unit held a vector.
func (f *finder) addTemporal(blkRow, blkCol int, dist [2]int) bool {
	posRow, posCol := blkRow, blkCol
	if f.b.MiRow&1 == 0 {
		posRow++
	}
	if f.b.MiCol&1 == 0 {
		posCol++
	}
	if !f.c.Tile.Inside(f.b.MiRow, f.b.MiCol, posRow, posCol) {
		return false
	}
	unit := f.c.Field.AtMi(f.b.MiRow+posRow, f.b.MiCol+posCol)
	if !unit.Valid() {
		return false
	}
	prec := f.c.Frame.Precision
	var c mv.Candidate
	c.This = mv.LowerPrecision(mv.Project(unit.MV, dist[0], int(unit.Offset)), prec)
	compound := f.ref.IsCompound()
	if compound {
		c.Comp = mv.LowerPrecision(mv.Project(unit.MV, dist[1], int(unit.Offset)), prec)
	}

	if blkRow == 0 && blkCol == 0 {
		far := farFrom(c.This, f.gm[0])
		if compound {
			far = far || farFrom(c.Comp, f.gm[1])
		}
		if far {
			f.ctx |= 1 << GlobalMVOffset
		}
	}
	f.stack.merge(c, compound, 2)
	return true
}

// farFrom reports whether a and b differ by 16 or more on either axis.
func farFrom(a, b mv.MV) bool {
	return abs(int(a.Row)-int(b.Row)) >= 16 || abs(int(a.Col)-int(b.Col)) >= 16
}

// scanTemporal samples the temporal field over the block on an 8x8 grid,
// or a 16x16 grid along dimensions of 64 pixels or more, and at three
// probes below and right of mid-sized blocks.
func (f *finder) scanTemporal() {
	s := f.c.Frame
	var dist [2]int
	for i := 0; i < 2; i++ {
		if f.ref[i].IsInter() {
			dist[i] = s.Distance(f.ref[i])
		}
	}

	voffset := max(block.Mi8x8, f.bh)
	hoffset := max(block.Mi8x8, f.bw)
	rowEnd := min(f.bh, block.Mi64x64)
	colEnd := min(f.bw, block.Mi64x64)
	probes := [3][2]int{
		{voffset, -2},
		{voffset, hoffset},
		{voffset - 2, hoffset},
	}
	extend := f.bh >= block.Mi8x8 && f.bh < block.Mi64x64 &&
		f.bw >= block.Mi8x8 && f.bw < block.Mi64x64

	stepH, stepW := block.Mi8x8, block.Mi8x8
	if f.bh >= block.Mi64x64 {
		stepH = block.Mi16x16
	}
	if f.bw >= block.Mi64x64 {
		stepW = block.Mi16x16
	}

	available := false
	for r := 0; r < rowEnd; r += stepH {
		for c := 0; c < colEnd; c += stepW {
			ok := f.addTemporal(r, c, dist)
			if r == 0 && c == 0 {
				available = ok
			}
		}
	}
	if !available {
		f.ctx |= 1 << GlobalMVOffset
	}

	if !extend {
		return
	}
	for _, p := range probes {
		if !checkSBBorder(f.b.MiRow, f.b.MiCol, p[0], p[1]) {
			continue
		}
		f.addTemporal(p[0], p[1], dist)
	}
}
