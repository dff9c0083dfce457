package block

import (
	"github.com/deepteams/mvref/internal/grid"
	"github.com/deepteams/mvref/internal/mv"
)

// ModeInfo is the decoded record of one coding block.
type ModeInfo struct {
	Size Size
	Mode Mode
	Ref  RefPair
	MV   [2]mv.MV
}

// IsInter reports whether the block is inter predicted.
func (mi *ModeInfo) IsInter() bool { return mi.Ref[0] > Intra }

// HasSecondRef reports whether the block uses compound prediction.
func (mi *ModeInfo) HasSecondRef() bool { return mi.Ref.IsCompound() }

// Candidate returns the block's vector pair as a stack candidate.
func (mi *ModeInfo) Candidate() mv.Candidate {
	c := mv.Candidate{This: mi.MV[0]}
	if mi.HasSecondRef() {
		c.Comp = mi.MV[1]
	}
	return c
}

// Grid addresses ModeInfo records by mi position. Every unit covered by a
// block points at the same record; units not yet decoded are nil.
type Grid struct {
	cells *grid.Grid[*ModeInfo]
}

// NewGrid allocates an empty grid of miRows x miCols units.
func NewGrid(miRows, miCols int) *Grid {
	return &Grid{cells: grid.New[*ModeInfo](miRows, miCols)}
}

// MiRows returns the grid height in mi units.
func (g *Grid) MiRows() int { return g.cells.Rows() }

// MiCols returns the grid width in mi units.
func (g *Grid) MiCols() int { return g.cells.Cols() }

// At returns the record covering (miRow, miCol), or nil outside the grid
// or where no block has been placed.
func (g *Grid) At(miRow, miCol int) *ModeInfo { return g.cells.At(miRow, miCol) }

// Place points every unit covered by mi at (miRow, miCol) at mi. Units past
// the frame edge are skipped.
func (g *Grid) Place(miRow, miCol int, mi *ModeInfo) {
	g.cells.FillRect(miRow, miCol, mi.Size.MiHigh(), mi.Size.MiWide(), mi)
}

// Reset clears every unit.
func (g *Grid) Reset() { g.cells.Fill(nil) }
