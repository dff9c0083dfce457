package refmv

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

// Result is the outcome of Find for one block and reference pair.
type Result struct {
	// Stack holds the candidates, nearest partition first.
	Stack []Entry
	// NearestCount is the size of the nearest partition.
	NearestCount int
	// RankedCount is the number of entries found by the neighbour and
	// temporal scans; both partitions lie below it.
	RankedCount int
	// Context is the mode context: the new/near/global bits in the low
	// byte and the expected stack size in the second byte.
	Context int16
	// List is the two-entry predictor list of single reference blocks,
	// padded with the global vector.
	List [MaxMVRefCandidates]mv.MV
	// Global holds the global motion vectors of the pair.
	Global [2]mv.MV
}

// Find builds the reference stack of block b for reference pair ref. It
// fails only when ref names a reference the frame does not have.
func (c *Context) Find(b Block, ref block.RefPair) (Result, error) {
	if err := c.Frame.CheckPair(ref); err != nil {
		return Result{}, err
	}
	f := &finder{
		c:   c,
		b:   b,
		ref: ref,
		gm:  c.Frame.GlobalMVs(ref, b.Size, b.MiRow, b.MiCol),
		bw:  b.Size.MiWide(),
		bh:  b.Size.MiHigh(),
	}
	res := f.run()
	res.Global = f.gm
	return res, nil
}

func (f *finder) run() Result {
	var res Result
	t := f.c.Tile
	b := f.b

	rowAdj := f.bh < block.Mi8x8 && b.MiRow&1 != 0
	colAdj := f.bw < block.Mi8x8 && b.MiCol&1 != 0
	maxRowOffset, maxColOffset := 0, 0
	if t.UpAvailable(b.MiRow) {
		maxRowOffset = -(RowCols << 1) + btoi(rowAdj)
		if f.bh < block.Mi8x8 {
			maxRowOffset = -(2 << 1) + btoi(rowAdj)
		}
		maxRowOffset = t.ValidRowOffset(b.MiRow, maxRowOffset)
	}
	if t.LeftAvailable(b.MiCol) {
		maxColOffset = -(RowCols << 1) + btoi(colAdj)
		if f.bw < block.Mi8x8 {
			maxColOffset = -(2 << 1) + btoi(colAdj)
		}
		maxColOffset = t.ValidColOffset(b.MiCol, maxColOffset)
	}

	var rowMatch, colMatch, newmv, processedRows, processedCols int
	if abs(maxRowOffset) >= 1 {
		f.scanRow(-1, maxRowOffset, &processedRows, &rowMatch, &newmv)
	}
	if abs(maxColOffset) >= 1 {
		f.scanCol(-1, maxColOffset, &processedCols, &colMatch, &newmv)
	}
	if f.hasTopRight() {
		f.scanBlock(-1, f.bw, &rowMatch, &newmv)
	}

	nearestMatch := btoi(rowMatch > 0) + btoi(colMatch > 0)
	nearest := f.stack.Len()
	for i := 0; i < nearest; i++ {
		f.stack.entries[i].Weight += RefCatLevel
	}

	if f.c.Frame.AllowRefFrameMVs && f.c.Field != nil && f.ref[0].IsInter() {
		f.scanTemporal()
	}

	var dummy int
	f.scanBlock(-1, -1, &rowMatch, &dummy)
	for idx := 2; idx <= RowCols; idx++ {
		rowOffset := -(idx << 1) + 1 + btoi(rowAdj)
		colOffset := -(idx << 1) + 1 + btoi(colAdj)
		if abs(rowOffset) <= abs(maxRowOffset) && abs(rowOffset) > processedRows {
			f.scanRow(rowOffset, maxRowOffset, &processedRows, &rowMatch, &dummy)
		}
		if abs(colOffset) <= abs(maxColOffset) && abs(colOffset) > processedCols {
			f.scanCol(colOffset, maxColOffset, &processedCols, &colMatch, &dummy)
		}
	}

	refMatch := btoi(rowMatch > 0) + btoi(colMatch > 0)
	f.modeContext(nearestMatch, refMatch, newmv)

	res.NearestCount = nearest
	res.RankedCount = f.stack.Len()
	f.stack.sortRange(0, nearest)
	f.stack.sortRange(nearest, f.stack.Len())

	miSize := min(
		min(block.Mi64x64, f.bw, f.c.Frame.MiCols-b.MiCol),
		min(block.Mi64x64, f.bh, f.c.Frame.MiRows-b.MiRow),
	)
	if f.ref.IsCompound() {
		f.completeCompound(miSize, maxRowOffset, maxColOffset)
	} else {
		res.List = f.completeSingle(miSize, maxRowOffset, maxColOffset)
	}
	f.fillFromBanks()

	res.Stack = f.stack.Entries()
	res.Context = f.ctx
	return res
}

// modeContext derives the mode context from the match counts.
func (f *finder) modeContext(nearestMatch, refMatch, newmv int) {
	switch nearestMatch {
	case 0:
		if refMatch >= 1 {
			f.ctx |= 1
		}
		if refMatch == 1 {
			f.ctx |= 1 << RefMVOffset
		} else if refMatch >= 2 {
			f.ctx |= 2 << RefMVOffset
		}
	case 1:
		if newmv > 0 {
			f.ctx |= 2
		} else {
			f.ctx |= 3
		}
		if refMatch == 1 {
			f.ctx |= 3 << RefMVOffset
		} else if refMatch >= 2 {
			f.ctx |= 4 << RefMVOffset
		}
	default:
		if newmv >= 1 {
			f.ctx |= 4
		} else {
			f.ctx |= 5
		}
		f.ctx |= 5 << RefMVOffset
	}

	expected := max(f.stack.Len(), MaxMVRefCandidates) + btoi(!f.ref.IsCompound())
	expected += f.c.bankCount(f.b.MiCol, f.ref)
	f.ctx |= int16(min(expected, MaxStackSize)) << 8
}

// neighbours calls fn for each block along the row above and then the
// column left of the block, covering miSize units each, while more is
// true.
func (f *finder) neighbours(miSize, maxRowOffset, maxColOffset int, more func() bool, fn func(*block.ModeInfo)) {
	b := f.b
	for idx := 0; abs(maxRowOffset) >= 1 && idx < miSize && more(); {
		cand := f.c.Grid.At(b.MiRow-1, b.MiCol+idx)
		if cand == nil {
			break
		}
		fn(cand)
		idx += cand.Size.MiWide()
	}
	for idx := 0; abs(maxColOffset) >= 1 && idx < miSize && more(); {
		cand := f.c.Grid.At(b.MiRow+idx, b.MiCol-1)
		if cand == nil {
			break
		}
		fn(cand)
		idx += cand.Size.MiHigh()
	}
}

// completeCompound synthesizes pairs from the direct neighbours until the
// stack holds two entries, then clamps every entry.
func (f *finder) completeCompound(miSize, maxRowOffset, maxColOffset int) {
	if f.stack.Len() < MaxMVRefCandidates {
		var refID, refDiff [2][2]mv.MV
		var idCount, diffCount [2]int
		bias := &f.c.Frame.SignBias
		f.neighbours(miSize, maxRowOffset, maxColOffset, func() bool { return true }, func(cand *block.ModeInfo) {
			for i := 0; i < 2; i++ {
				r := cand.Ref[i]
				for k := 0; k < 2; k++ {
					switch {
					case r == f.ref[k] && idCount[k] < 2:
						refID[k][idCount[k]] = cand.MV[i]
						idCount[k]++
					case r > block.Intra && diffCount[k] < 2:
						v := cand.MV[i]
						if bias[r] != bias[f.ref[k]] {
							v = v.Neg()
						}
						refDiff[k][diffCount[k]] = v
						diffCount[k]++
					}
				}
			}
		})

		var list [MaxMVRefCandidates]mv.Candidate
		for k := 0; k < 2; k++ {
			n := 0
			set := func(v mv.MV) {
				if k == 0 {
					list[n].This = v
				} else {
					list[n].Comp = v
				}
				n++
			}
			for i := 0; i < idCount[k] && n < MaxMVRefCandidates; i++ {
				set(refID[k][i])
			}
			for i := 0; i < diffCount[k] && n < MaxMVRefCandidates; i++ {
				set(refDiff[k][i])
			}
			for n < MaxMVRefCandidates {
				set(f.gm[k])
			}
		}

		if f.stack.Len() == 1 {
			next := list[0]
			if list[0] == f.stack.entries[0].Candidate {
				next = list[1]
			}
			f.stack.push(Entry{Candidate: next, Weight: 2})
		} else {
			for _, c := range list {
				f.stack.push(Entry{Candidate: c, Weight: 2})
			}
		}
	}
	if f.stack.Len() < MaxMVRefCandidates {
		f.c.violation(f.b, f.ref, "compound completion left too few candidates")
		for f.stack.Len() < MaxMVRefCandidates {
			f.stack.push(Entry{Candidate: mv.Candidate{This: f.gm[0], Comp: f.gm[1]}, Weight: 2})
		}
	}

	bwPx, bhPx := f.b.Size.Wide(), f.b.Size.High()
	edges := f.c.Frame.Edges(f.b.MiRow, f.b.MiCol, f.b.Size)
	for i := 0; i < f.stack.Len(); i++ {
		e := &f.stack.entries[i]
		e.This = mv.ClampToEdges(e.This, bwPx, bhPx, edges)
		e.Comp = mv.ClampToEdges(e.Comp, bwPx, bhPx, edges)
	}
}

// completeSingle adds sign adjusted vectors of any inter neighbour until
// the stack holds two entries, clamps, builds the predictor list and
// appends the global vector when it is missing.
func (f *finder) completeSingle(miSize, maxRowOffset, maxColOffset int) [MaxMVRefCandidates]mv.MV {
	bias := &f.c.Frame.SignBias
	own := f.ref[0]
	more := func() bool { return f.stack.Len() < MaxMVRefCandidates }
	f.neighbours(miSize, maxRowOffset, maxColOffset, more, func(cand *block.ModeInfo) {
		for i := 0; i < 2; i++ {
			r := cand.Ref[i]
			if r <= block.Intra {
				continue
			}
			v := cand.MV[i]
			if bias[r] != bias[own] {
				v = v.Neg()
			}
			if f.stack.indexThis(v) >= 0 {
				continue
			}
			f.stack.push(Entry{Candidate: mv.Candidate{This: v}, Weight: 2})
			if f.stack.Len() >= MaxMVRefCandidates {
				return
			}
		}
	})

	bwPx, bhPx := f.b.Size.Wide(), f.b.Size.High()
	edges := f.c.Frame.Edges(f.b.MiRow, f.b.MiCol, f.b.Size)
	for i := 0; i < f.stack.Len(); i++ {
		e := &f.stack.entries[i]
		e.This = mv.ClampToEdges(e.This, bwPx, bhPx, edges)
	}

	var list [MaxMVRefCandidates]mv.MV
	for i := range list {
		if i < f.stack.Len() {
			list[i] = f.stack.entries[i].This
		} else {
			list[i] = f.gm[0]
		}
	}

	if !f.stack.Full() && f.stack.indexThis(f.gm[0]) < 0 {
		f.stack.push(Entry{Candidate: mv.Candidate{This: f.gm[0], Comp: f.gm[1]}, Weight: RefCatLevel})
	}
	return list
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
