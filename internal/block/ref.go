package block

import "fmt"

// RefFrame identifies one reference frame slot of the current frame.
type RefFrame int8

// Reference frame slots. None marks an unused second slot.
const (
	None RefFrame = iota - 1
	Intra
	Last
	Last2
	Last3
	Golden
	Bwdref
	Altref2
	Altref
)

// RefFrames counts Intra plus the inter slots; InterRefs counts inter slots.
const (
	RefFrames = 8
	InterRefs = 7
)

// RefTypes is the number of distinct single and ordered compound reference
// keys returned by RefPair.Type.
const RefTypes = RefFrames + InterRefs*InterRefs

var refNames = [RefFrames]string{"INTRA", "LAST", "LAST2", "LAST3", "GOLDEN", "BWDREF", "ALTREF2", "ALTREF"}

// IsInter reports whether r is one of the seven inter slots.
func (r RefFrame) IsInter() bool { return r >= Last && r <= Altref }

// Index returns the zero-based inter slot of r (LAST is 0).
func (r RefFrame) Index() int { return int(r - Last) }

func (r RefFrame) String() string {
	if r >= Intra && r <= Altref {
		return refNames[r]
	}
	if r == None {
		return "NONE"
	}
	return fmt.Sprintf("ref(%d)", int8(r))
}

// RefPair holds the one or two reference slots used by a block. A single
// reference block has None in the second slot.
type RefPair [2]RefFrame

// Single returns the pair for a one-reference block.
func Single(r RefFrame) RefPair { return RefPair{r, None} }

// Compound returns the pair for a two-reference block.
func Compound(a, b RefFrame) RefPair { return RefPair{a, b} }

// IsCompound reports whether the second slot names an inter reference.
func (p RefPair) IsCompound() bool { return p[1] > Intra }

// Type returns a dense key for p in [0, RefTypes): single references map
// to themselves and ordered compound pairs follow them.
func (p RefPair) Type() int {
	if !p.IsCompound() {
		return int(p[0])
	}
	return RefFrames + p[0].Index()*InterRefs + p[1].Index()
}

// Valid reports whether every used slot of p is a known reference.
func (p RefPair) Valid() bool {
	if p[0] < Intra || p[0] > Altref {
		return false
	}
	if p[1] == None {
		return true
	}
	return p[0].IsInter() && p[1].IsInter()
}

func (p RefPair) String() string {
	if p.IsCompound() {
		return p[0].String() + "+" + p[1].String()
	}
	return p[0].String()
}
