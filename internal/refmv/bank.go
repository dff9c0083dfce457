package refmv

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
	"github.com/deepteams/mvref/internal/refbank"
)

// fillFromBanks tops the stack up from the left and above banks, most
// recent entries first, taking one entry from each bank in turn.
func (f *finder) fillFromBanks() {
	limit := min(f.c.MaxDRLBits+1, MaxStackSize)
	if f.stack.Len() >= limit || f.ref[0] == block.Intra {
		return
	}
	var left, above *refbank.Bank
	if f.c.Left != nil {
		left = f.c.Left.Bank(f.ref)
	}
	if f.c.Above != nil {
		above = f.c.Above.For(f.b.MiCol).Bank(f.ref)
	}
	countLeft, countAbove := bankLen(left), bankLen(above)
	if countLeft == 0 && countAbove == 0 {
		return
	}

	var idxLeft, idxAbove int
	for {
		for ; idxLeft < countLeft && f.stack.Len() < limit; idxLeft++ {
			if f.acceptBankEntry(left.MRU(idxLeft)) {
				break
			}
		}
		for ; idxAbove < countAbove && f.stack.Len() < limit; idxAbove++ {
			if f.acceptBankEntry(above.MRU(idxAbove)) {
				break
			}
		}
		if idxLeft >= countLeft && idxAbove >= countAbove {
			return
		}
		if f.stack.Len() >= limit {
			return
		}
	}
}

func bankLen(b *refbank.Bank) int {
	if b == nil {
		return 0
	}
	return b.Len()
}

// acceptBankEntry pushes c if it is new to the stack and the block it
// points at overlaps the frame.
func (f *finder) acceptBankEntry(c mv.Candidate) bool {
	compound := f.ref.IsCompound()
	for i := 0; i < f.stack.Len(); i++ {
		e := f.stack.entries[i]
		if e.This == c.This && (!compound || e.Comp == c.Comp) {
			return false
		}
	}

	bw, bh := f.b.Size.Wide(), f.b.Size.High()
	s := f.c.Frame
	vs := [2]mv.MV{c.This, c.Comp}
	n := 1
	if compound {
		n = 2
	}
	for _, v := range vs[:n] {
		// Whole pixels, truncated towards zero.
		x := f.b.MiCol*block.MiSize + int(v.Col)/8
		y := f.b.MiRow*block.MiSize + int(v.Row)/8
		if x <= -bw || y <= -bh || x >= s.Width || y >= s.Height {
			return false
		}
	}
	return f.stack.push(Entry{Candidate: c, Weight: RefCatLevel})
}
