// Package frame holds the per-frame records that motion vector derivation
// reads from reference frame management: decoded frame buffers, order hint
// arithmetic, temporal sign bias and side classification, reference slot
// remapping, skip mode reference selection and global motion evaluation.
package frame

import (
	"errors"
	"fmt"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/grid"
	"github.com/deepteams/mvref/internal/mv"
)

// ErrCorruptFrame reports a bitstream that references frames it may not.
var ErrCorruptFrame = errors.New("frame: corrupt frame")

// Type is the coding type of a frame.
type Type uint8

// Frame types.
const (
	KeyFrame Type = iota
	InterFrame
	IntraOnlyFrame
	SwitchFrame
)

var typeNames = [...]string{"key", "inter", "intra_only", "switch"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// IsIntraOnly reports whether t codes no inter blocks.
func (t Type) IsIntraOnly() bool { return t == KeyFrame || t == IntraOnlyFrame }

// OrderHintInfo describes the order hint field of the sequence.
type OrderHintInfo struct {
	Enabled bool
	Bits    int
}

// RelativeDist returns the signed distance a - b between two order hints,
// wrapped to the width of the field. It is 0 when order hints are off.
func (o OrderHintInfo) RelativeDist(a, b int) int {
	if !o.Enabled {
		return 0
	}
	diff := a - b
	m := 1 << (o.Bits - 1)
	return (diff & (m - 1)) - (diff & m)
}

// NoOrderHint marks a reference order hint that was never set.
const NoOrderHint = -1

// StoredMV is one unit of the compact motion store. Ref is None where the
// unit holds no usable vector.
type StoredMV struct {
	MV  mv.MV
	Ref block.RefFrame
}

// Buffer is the record of a decoded frame kept for use as a reference.
type Buffer struct {
	OrderHint int
	Type      Type
	MiRows    int
	MiCols    int

	// RefOrderHints are the order hints of this frame's own references,
	// indexed by inter slot.
	RefOrderHints [block.InterRefs]int

	// MVs is the compact motion store, (MiRows+1)/2 x (MiCols+1)/2 units.
	MVs *grid.Grid[StoredMV]
}

// NewBuffer returns a buffer with no stored motion and unset reference
// order hints.
func NewBuffer(orderHint int, t Type, miRows, miCols int) *Buffer {
	b := &Buffer{OrderHint: orderHint, Type: t, MiRows: miRows, MiCols: miCols}
	for i := range b.RefOrderHints {
		b.RefOrderHints[i] = NoOrderHint
	}
	return b
}

// StoreRows returns the height of the compact motion store.
func (b *Buffer) StoreRows() int { return (b.MiRows + 1) >> 1 }

// StoreCols returns the width of the compact motion store.
func (b *Buffer) StoreCols() int { return (b.MiCols + 1) >> 1 }

// MiDims returns the mode info grid size for a frame of w x h pixels.
func MiDims(w, h int) (miRows, miCols int) {
	return ((h + 7) >> 3) << 1, ((w + 7) >> 3) << 1
}
