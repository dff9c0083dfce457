// Package mv provides the motion vector type and the fixed-point helpers
// shared by every stage of reference motion vector derivation: range
// clamping, frame-distance projection and sub-pel precision lowering.
//
// All arithmetic reproduces the integer results of the AV1 reference
// decoder bit for bit. Vectors are in 1/8 pel units.
package mv

// MV is a motion vector in 1/8 pel units.
type MV struct {
	Row int16
	Col int16
}

// Candidate is a primary vector plus an optional companion vector used by
// compound (two reference) prediction.
type Candidate struct {
	This MV
	Comp MV
}

// Range of a coded motion vector component.
const (
	Low = -(1 << 14)
	Upp = 1 << 14
)

// MaxFrameDistance bounds the numerator and denominator of a projection.
const MaxFrameDistance = 31

// RefMVsLimit is the largest component magnitude that is saved into the
// compact motion store for temporal use.
const RefMVsLimit = (1 << 12) - 1

// Border is the margin, in 1/8 pel, that a reference block may extend past
// the frame edge after clamping.
const Border = 16 << 3

// Zero is the zero motion vector.
var Zero = MV{}

// Invalid marks a temporal motion field cell that holds no projection.
var Invalid = MV{Row: -1 << 15, Col: -1 << 15}

// IsInvalid reports whether m is the Invalid sentinel.
func (m MV) IsInvalid() bool { return m == Invalid }

// Neg returns -m.
func (m MV) Neg() MV { return MV{Row: -m.Row, Col: -m.Col} }

// Add returns m + o without clamping.
func (m MV) Add(o MV) MV { return MV{Row: m.Row + o.Row, Col: m.Col + o.Col} }

// divMult[d] = round(2^14 / d); entry 0 is 0.
var divMult = [32]int{
	0, 16384, 8192, 5461, 4096, 3276, 2730, 2340,
	2048, 1820, 1638, 1489, 1365, 1260, 1170, 1092,
	1024, 963, 910, 862, 819, 780, 744, 712,
	682, 655, 630, 606, 585, 564, 546, 528,
}

// DivMult returns the 14-bit reciprocal of den, den in [0, MaxFrameDistance].
func DivMult(den int) int { return divMult[den] }

// RoundPowerOfTwoSigned rounds v / 2^n to nearest, halves away from zero.
func RoundPowerOfTwoSigned(v, n int) int {
	if v < 0 {
		return -((-v + (1<<n)>>1) >> n)
	}
	return (v + (1<<n)>>1) >> n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Project scales ref by num/den using the reciprocal table. den is clamped
// to MaxFrameDistance and num to +-MaxFrameDistance; each output component
// is clamped to the open range (Low, Upp).
func Project(ref MV, num, den int) MV {
	den = min(den, MaxFrameDistance)
	if den < 0 {
		den = 0
	}
	if num > 0 {
		num = min(num, MaxFrameDistance)
	} else {
		num = max(num, -MaxFrameDistance)
	}
	scale := num * divMult[den]
	row := RoundPowerOfTwoSigned(int(ref.Row)*scale, 14)
	col := RoundPowerOfTwoSigned(int(ref.Col)*scale, 14)
	return MV{
		Row: int16(clampInt(row, Low+1, Upp-1)),
		Col: int16(clampInt(col, Low+1, Upp-1)),
	}
}

// Precision is the sub-pel resolution allowed for motion vectors in a frame.
type Precision uint8

// Sub-pel precisions, coarsest first.
const (
	PrecisionInteger Precision = iota
	PrecisionHalf
	PrecisionQuarter
	PrecisionEighth
)

func lowerComponent(v int16, radix int) int16 {
	x := int(v)
	mod := x % radix
	if mod == 0 {
		return v
	}
	x -= mod
	if abs(mod) > radix/2 {
		if mod > 0 {
			x += radix
		} else {
			x -= radix
		}
	}
	return int16(x)
}

// LowerPrecision rounds m to the grid allowed by p. Remainders larger than
// half a step are rounded away from zero, the rest towards zero.
func LowerPrecision(m MV, p Precision) MV {
	if p >= PrecisionEighth {
		return m
	}
	radix := 1 << (PrecisionEighth - p)
	return MV{Row: lowerComponent(m.Row, radix), Col: lowerComponent(m.Col, radix)}
}

// Edges holds the signed distances, in 1/8 pel, from a block to the frame
// edges. Left and Top are <= 0, Right and Bottom >= 0.
type Edges struct {
	Left, Right, Top, Bottom int
}

// ClampToEdges clamps m so that a bw x bh pixel block displaced by it stays
// within Border of the frame.
func ClampToEdges(m MV, bw, bh int, e Edges) MV {
	colMin := e.Left - bw*8 - Border
	colMax := e.Right + bw*8 + Border
	rowMin := e.Top - bh*8 - Border
	rowMax := e.Bottom + bh*8 + Border
	return MV{
		Row: int16(clampInt(int(m.Row), rowMin, rowMax)),
		Col: int16(clampInt(int(m.Col), colMin, colMax)),
	}
}

// Within reports whether both components of m are within [-limit, limit].
func (m MV) Within(limit int) bool {
	return abs(int(m.Row)) <= limit && abs(int(m.Col)) <= limit
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
