package frame

import "github.com/deepteams/mvref/internal/block"

// SkipMode is the reference pair used by skip mode, as zero-based inter
// slot indices with Ref0 < Ref1.
type SkipMode struct {
	Ref0, Ref1 int
}

// Refs returns the pair as reference frames.
func (m SkipMode) Refs() block.RefPair {
	return block.Compound(block.Last+block.RefFrame(m.Ref0), block.Last+block.RefFrame(m.Ref1))
}

// SkipModeRefs selects the skip mode references of the frame. It pairs the
// nearest past and nearest future references; with no future reference it
// pairs the two nearest past ones. ok is false when skip mode is not
// allowed.
func (s *State) SkipModeRefs() (m SkipMode, ok bool) {
	if !s.OrderHints.Enabled || s.Type.IsIntraOnly() || !s.ReferenceSelect {
		return SkipMode{}, false
	}
	cur := s.Cur.OrderHint
	oh := s.OrderHints
	fwd, bwd := -1, -1
	fwdHint, bwdHint := 0, 0
	for i, b := range s.Refs {
		if b == nil {
			continue
		}
		d := oh.RelativeDist(b.OrderHint, cur)
		switch {
		case d < 0:
			if fwd < 0 || oh.RelativeDist(b.OrderHint, fwdHint) > 0 {
				fwd, fwdHint = i, b.OrderHint
			}
		case d > 0:
			if bwd < 0 || oh.RelativeDist(b.OrderHint, bwdHint) < 0 {
				bwd, bwdHint = i, b.OrderHint
			}
		}
	}
	if fwd < 0 {
		return SkipMode{}, false
	}
	if bwd >= 0 {
		return SkipMode{Ref0: min(fwd, bwd), Ref1: max(fwd, bwd)}, true
	}

	second := -1
	secondHint := 0
	for i, b := range s.Refs {
		if b == nil {
			continue
		}
		if oh.RelativeDist(b.OrderHint, fwdHint) < 0 &&
			(second < 0 || oh.RelativeDist(b.OrderHint, secondHint) > 0) {
			second, secondHint = i, b.OrderHint
		}
	}
	if second < 0 {
		return SkipMode{}, false
	}
	return SkipMode{Ref0: min(fwd, second), Ref1: max(fwd, second)}, true
}
