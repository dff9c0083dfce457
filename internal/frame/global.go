package frame

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

// WarpType is the kind of a global motion model.
type WarpType uint8

// Global motion model kinds, by increasing generality.
const (
	Identity WarpType = iota
	Translation
	RotZoom
	Affine
)

// WarpPrecBits is the fixed-point precision of global motion parameters.
const WarpPrecBits = 16

const transOnlyPrecDiff = WarpPrecBits - 3

// GlobalMotion is the global motion model of one reference frame.
// Mat holds the affine parameters in the bitstream order: two translation
// terms followed by the 2x2 matrix.
type GlobalMotion struct {
	Type WarpType
	Mat  [6]int32
}

// IdentityMotion is the default global motion model.
var IdentityMotion = GlobalMotion{Type: Identity, Mat: [6]int32{0, 0, 1 << WarpPrecBits, 0, 0, 1 << WarpPrecBits}}

func convertToTransPrec(p mv.Precision, coor int) int {
	if p > mv.PrecisionQuarter {
		return mv.RoundPowerOfTwoSigned(coor, WarpPrecBits-3)
	}
	return mv.RoundPowerOfTwoSigned(coor, WarpPrecBits-2) * 2
}

// MotionVector evaluates g at the centre of a block of size bs placed at
// (miRow, miCol) and rounds the result to precision p.
func (g GlobalMotion) MotionVector(p mv.Precision, bs block.Size, miRow, miCol int) mv.MV {
	switch g.Type {
	case Identity:
		return mv.Zero
	case Translation:
		res := mv.MV{
			Row: int16(g.Mat[0] >> transOnlyPrecDiff),
			Col: int16(g.Mat[1] >> transOnlyPrecDiff),
		}
		return mv.LowerPrecision(res, p)
	}
	x := miCol*block.MiSize + bs.Wide()/2 - 1
	y := miRow*block.MiSize + bs.High()/2 - 1
	m := g.Mat
	xc := (int(m[2])-(1<<WarpPrecBits))*x + int(m[3])*y + int(m[0])
	yc := int(m[4])*x + (int(m[5])-(1<<WarpPrecBits))*y + int(m[1])
	res := mv.MV{
		Row: int16(convertToTransPrec(p, yc)),
		Col: int16(convertToTransPrec(p, xc)),
	}
	return mv.LowerPrecision(res, p)
}

// Covers reports whether a neighbour coded with mi takes its vectors from
// this model rather than from its stored vectors: it must use a global
// mode, the model must be more than a translation and the block at least
// 8 pixels on its short side.
func (g GlobalMotion) Covers(mi *block.ModeInfo) bool {
	return mi.Mode.IsGlobal() && g.Type > Translation && min(mi.Size.Wide(), mi.Size.High()) >= 8
}

// GlobalMVs returns the global motion vectors for pair p at a block, with
// zero for unused slots and for intra.
func (s *State) GlobalMVs(p block.RefPair, bs block.Size, miRow, miCol int) [2]mv.MV {
	var out [2]mv.MV
	if p[0] == block.Intra {
		return out
	}
	for i := 0; i < 2; i++ {
		if p[i].IsInter() {
			out[i] = s.Global[p[i]].MotionVector(s.Precision, bs, miRow, miCol)
		}
	}
	return out
}
