package motionfield

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
	"github.com/deepteams/mvref/internal/mv"
)

// Direction selects which way along the timeline a source store is
// projected.
type Direction uint8

// Projection directions. Backward projects a past frame's motion
// forwards through the current frame.
const (
	Forward  Direction = 0
	Backward Direction = 2
)

// Window bounds, in pixels, how far a projected unit may land from the
// 64x64 area of its source unit.
type Window struct {
	Width, Height int
}

// DefaultWindow lets units move one 64x64 area sideways and never
// vertically.
var DefaultWindow = Window{Width: 64, Height: 0}

// Projector projects compact motion stores into a temporal motion field.
type Projector struct {
	Window Window
}

// eligible reports whether the motion of b can be projected into the
// current frame.
func eligible(s *frame.State, b *frame.Buffer) bool {
	if b == nil || b.MVs == nil {
		return false
	}
	if b.Type.IsIntraOnly() {
		return false
	}
	return b.MiRows == s.MiRows && b.MiCols == s.MiCols
}

func offsetUnits(v int16) int {
	if v >= 0 {
		return int(v) >> (4 + block.MiSizeLog2)
	}
	return -(int(-v) >> (4 + block.MiSizeLog2))
}

// blockPosition maps the source unit (blkRow, blkCol) moved by m to a
// destination unit, or reports false if it leaves the field or the window.
func (p *Projector) blockPosition(f *Field, blkRow, blkCol int, m mv.MV, reverse bool) (int, int, bool) {
	baseRow := (blkRow >> 3) << 3
	baseCol := (blkCol >> 3) << 3
	dr, dc := offsetUnits(m.Row), offsetUnits(m.Col)
	row, col := blkRow+dr, blkCol+dc
	if reverse {
		row, col = blkRow-dr, blkCol-dc
	}
	if !f.Contains(row, col) {
		return 0, 0, false
	}
	rowWin, colWin := p.Window.Height>>3, p.Window.Width>>3
	if row < baseRow-rowWin || row >= baseRow+8+rowWin ||
		col < baseCol-colWin || col >= baseCol+8+colWin {
		return 0, 0, false
	}
	return row, col, true
}

// Project projects the store of the reference in slot start into f. With
// overwrite false, units that already hold a vector are kept. It reports
// whether start was eligible as a source.
func (p *Projector) Project(f *Field, s *frame.State, start block.RefFrame, dir Direction, overwrite bool) bool {
	src := s.RefBuffer(start)
	if !eligible(s, src) {
		return false
	}
	oh := s.OrderHints
	startToCur := oh.RelativeDist(src.OrderHint, s.Cur.OrderHint)
	var refOffset [block.RefFrames]int
	for r := block.Last; r <= block.Altref; r++ {
		refOffset[r] = oh.RelativeDist(src.OrderHint, src.RefOrderHints[r.Index()])
	}
	if dir == Backward {
		startToCur = -startToCur
	}
	reverse := dir>>1 == 1
	if abs(startToCur) > mv.MaxFrameDistance {
		return true
	}

	rows, cols := src.MVs.Rows(), src.MVs.Cols()
	for blkRow := 0; blkRow < rows; blkRow++ {
		for blkCol := 0; blkCol < cols; blkCol++ {
			unit := src.MVs.At(blkRow, blkCol)
			if unit.Ref <= block.Intra {
				continue
			}
			off := refOffset[unit.Ref]
			if off <= 0 || off > mv.MaxFrameDistance {
				continue
			}
			projected := mv.Project(unit.MV, startToCur, off)
			row, col, ok := p.blockPosition(f, blkRow, blkCol, projected, reverse)
			if !ok {
				continue
			}
			dst := f.Ptr(row, col)
			if overwrite || !dst.Valid() {
				*dst = TemporalMV{MV: unit.MV, Offset: int8(off)}
			}
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
