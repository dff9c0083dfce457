package motionfield

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
	"github.com/deepteams/mvref/internal/grid"
	"github.com/deepteams/mvref/internal/mv"
	"github.com/deepteams/mvref/internal/pool"
)

var storeSlabs pool.Slabs[frame.StoredMV]

var emptyStored = frame.StoredMV{Ref: block.None}

// AllocStore gives b an empty compact motion store.
func AllocStore(b *frame.Buffer) {
	rows, cols := b.StoreRows(), b.StoreCols()
	b.MVs = grid.Wrap(rows, cols, storeSlabs.Get(rows*cols))
	b.MVs.Fill(emptyStored)
}

// ReleaseStore returns the compact motion store of b to the pool once b is
// no longer used as a reference.
func ReleaseStore(b *frame.Buffer) {
	if b.MVs == nil {
		return
	}
	storeSlabs.Put(b.MVs.Cells())
	b.MVs = nil
}

// CopyBlock records the motion of a decoded block in the current frame's
// compact motion store. Each unit keeps the last of the block's
// references that lies in the past and whose vector is small enough to
// project; other units are left empty.
func CopyBlock(s *frame.State, mi *block.ModeInfo, miRow, miCol int) {
	store := s.Cur.MVs
	if store == nil {
		return
	}
	xMis := min(mi.Size.MiWide(), s.MiCols-miCol)
	yMis := min(mi.Size.MiHigh(), s.MiRows-miRow)
	rows, cols := (yMis+1)>>1, (xMis+1)>>1

	unit := emptyStored
	for idx := 0; idx < 2; idx++ {
		r := mi.Ref[idx]
		if r <= block.Intra {
			continue
		}
		if s.Sides[r] != frame.SidePast {
			continue
		}
		if !mi.MV[idx].Within(mv.RefMVsLimit) {
			continue
		}
		unit = frame.StoredMV{MV: mi.MV[idx], Ref: r}
	}
	store.FillRect(miRow>>1, miCol>>1, rows, cols, unit)
}
