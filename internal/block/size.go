// Package block describes decoded coding blocks: size classes, prediction
// modes, reference frame identifiers, the per-block mode record and the
// grid that addresses records by their 4x4 (mode info, "mi") position.
package block

// MiSize is the edge of one mode info unit in pixels.
const (
	MiSize     = 4
	MiSizeLog2 = 2
)

// Size is a block size class.
type Size uint8

// Block sizes in the bitstream order.
const (
	Size4x4 Size = iota
	Size4x8
	Size8x4
	Size8x8
	Size8x16
	Size16x8
	Size16x16
	Size16x32
	Size32x16
	Size32x32
	Size32x64
	Size64x32
	Size64x64
	Size64x128
	Size128x64
	Size128x128
	Size4x16
	Size16x4
	Size8x32
	Size32x8
	Size16x64
	Size64x16
	SizesAll
)

// Width and height of each size in mi units.
var (
	miWide = [SizesAll]uint8{1, 1, 2, 2, 2, 4, 4, 4, 8, 8, 8, 16, 16, 16, 32, 32, 1, 4, 2, 8, 4, 16}
	miHigh = [SizesAll]uint8{1, 2, 1, 2, 4, 2, 4, 8, 4, 8, 16, 8, 16, 32, 16, 32, 4, 1, 8, 2, 16, 4}
)

var sizeNames = [SizesAll]string{
	"4x4", "4x8", "8x4", "8x8", "8x16", "16x8", "16x16", "16x32", "32x16",
	"32x32", "32x64", "64x32", "64x64", "64x128", "128x64", "128x128",
	"4x16", "16x4", "8x32", "32x8", "16x64", "64x16",
}

// Valid reports whether s names a real block size.
func (s Size) Valid() bool { return s < SizesAll }

// MiWide returns the width of s in mi units.
func (s Size) MiWide() int { return int(miWide[s]) }

// MiHigh returns the height of s in mi units.
func (s Size) MiHigh() int { return int(miHigh[s]) }

// Wide returns the width of s in pixels.
func (s Size) Wide() int { return int(miWide[s]) << MiSizeLog2 }

// High returns the height of s in pixels.
func (s Size) High() int { return int(miHigh[s]) << MiSizeLog2 }

func (s Size) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return sizeNames[s]
}

// SizeFor returns the size class with the given pixel dimensions.
func SizeFor(w, h int) (Size, bool) {
	for s := Size(0); s < SizesAll; s++ {
		if s.Wide() == w && s.High() == h {
			return s, true
		}
	}
	return SizesAll, false
}

// Edges, in mi units, of the square blocks that bound scan steps and
// extents.
const (
	Mi8x8   = 2
	Mi16x16 = 4
	Mi64x64 = 16
)
