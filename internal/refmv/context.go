// Package refmv derives the ranked motion vector reference stack of a
// block: spatial neighbour scans, temporal field merge, weight ranking,
// compound and single reference completion and reference bank fill.
//
// The result must match the reference decoder bit for bit, so the scan
// order and offset tables below are fixed. Equal weights keep their scan
// order.
package refmv

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
	"github.com/deepteams/mvref/internal/motionfield"
	"github.com/deepteams/mvref/internal/refbank"
)

// StrictInvariants turns internal invariant violations into panics.
// Tests set it; production code logs and recovers.
var StrictInvariants bool

// Context is the per-tile state read by Find. A Context is used by one
// goroutine at a time.
type Context struct {
	Frame *frame.State
	// Field is the temporal motion field of the frame, nil when temporal
	// candidates are off.
	Field *motionfield.Field
	Grid  *block.Grid
	Tile  block.Tile
	Coded *block.CodedMap

	// Left is the bank of the blocks decoded before the current one in
	// the tile, Above the optional per superblock column banks. Either
	// may be nil.
	Left  *refbank.Set
	Above *refbank.Columns

	// MaxDRLBits bounds how many entries the bank fill may grow the stack
	// to (MaxDRLBits+1).
	MaxDRLBits int
	// CheckCodedMap stops row and column scans at units of the current
	// superblock that are not decoded yet.
	CheckCodedMap bool

	Log zerolog.Logger
}

// Block locates a block in mi units.
type Block struct {
	MiRow, MiCol int
	Size         block.Size
}

func (b Block) String() string {
	return fmt.Sprintf("%v@(%d,%d)", b.Size, b.MiRow, b.MiCol)
}

// violation reports a broken internal invariant.
func (c *Context) violation(b Block, ref block.RefPair, msg string) {
	if StrictInvariants {
		panic(fmt.Sprintf("refmv: %s at %v ref %v", msg, b, ref))
	}
	c.Log.Error().
		Int("mi_row", b.MiRow).
		Int("mi_col", b.MiCol).
		Stringer("ref", ref).
		Msg(msg)
}

// bankCount returns how many entries the banks hold for ref.
func (c *Context) bankCount(miCol int, ref block.RefPair) int {
	n := 0
	if c.Left != nil {
		n += c.Left.Bank(ref).Len()
	}
	if c.Above != nil {
		n += c.Above.For(miCol).Bank(ref).Len()
	}
	return n
}
