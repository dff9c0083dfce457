// Package motionfield builds the temporal motion field of a frame. Each
// decoded frame leaves a compact motion store: one vector per 8x8 unit.
// Before a frame is decoded, the stores of its references are projected
// onto the frame's timeline, giving every unit at most one vector that
// later frames' blocks sample as temporal candidates.
package motionfield

import (
	"github.com/deepteams/mvref/internal/grid"
	"github.com/deepteams/mvref/internal/mv"
	"github.com/deepteams/mvref/internal/pool"
)

// TemporalMV is one unit of a temporal motion field: the unscaled source
// vector and the distance from its source frame to that frame's reference.
type TemporalMV struct {
	MV     mv.MV
	Offset int8
}

// Valid reports whether the unit holds a projected vector.
func (t TemporalMV) Valid() bool { return !t.MV.IsInvalid() }

var emptyUnit = TemporalMV{MV: mv.Invalid}

var fieldSlabs pool.Slabs[TemporalMV]

// Field is the temporal motion field of one frame, at half the mode info
// resolution.
type Field struct {
	*grid.Grid[TemporalMV]
}

// NewField returns an empty field for a frame of miRows x miCols units.
// Release returns its storage to the pool.
func NewField(miRows, miCols int) *Field {
	rows, cols := (miRows+1)>>1, (miCols+1)>>1
	f := &Field{grid.Wrap(rows, cols, fieldSlabs.Get(rows*cols))}
	f.Reset()
	return f
}

// Reset marks every unit empty.
func (f *Field) Reset() { f.Fill(emptyUnit) }

// AtMi returns the unit covering mode info position (miRow, miCol).
func (f *Field) AtMi(miRow, miCol int) TemporalMV {
	if !f.Contains(miRow>>1, miCol>>1) {
		return emptyUnit
	}
	return f.At(miRow>>1, miCol>>1)
}

// Count returns the number of units holding a vector.
func (f *Field) Count() int {
	n := 0
	for _, c := range f.Cells() {
		if c.Valid() {
			n++
		}
	}
	return n
}

// Release returns the field's storage to the pool. f must not be used
// afterwards.
func (f *Field) Release() {
	fieldSlabs.Put(f.Cells())
	f.Grid = nil
}
