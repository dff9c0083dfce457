package frame

import (
	"fmt"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

// Side classifies a reference against the current frame in display order.
type Side int8

// Reference sides.
const (
	SideSame   Side = -1
	SidePast   Side = 0
	SideFuture Side = 1
)

// State is the per-frame context shared, read only, by every block of the
// frame once BeginFrame has run.
type State struct {
	OrderHints OrderHintInfo
	Width      int
	Height     int
	MiRows     int
	MiCols     int
	Type       Type

	// ReferenceSelect is set when blocks may use compound references.
	ReferenceSelect bool
	// AllowRefFrameMVs enables the temporal motion field.
	AllowRefFrameMVs bool
	Precision        mv.Precision

	Cur  *Buffer
	Refs [block.InterRefs]*Buffer

	SignBias [block.RefFrames]bool
	Sides    [block.RefFrames]Side
	Global   [block.RefFrames]GlobalMotion
}

// RefBuffer returns the buffer held in inter slot r, or nil if r is not an
// inter slot or the slot is empty.
func (s *State) RefBuffer(r block.RefFrame) *Buffer {
	if !r.IsInter() {
		return nil
	}
	return s.Refs[r.Index()]
}

// Ref returns the buffer held in inter slot r. Blocks may only name
// populated inter slots; anything else is a corrupt stream.
func (s *State) Ref(r block.RefFrame) (*Buffer, error) {
	b := s.RefBuffer(r)
	if b == nil {
		return nil, fmt.Errorf("%w: reference %v not available", ErrCorruptFrame, r)
	}
	return b, nil
}

// CheckPair validates every slot used by p.
func (s *State) CheckPair(p block.RefPair) error {
	if !p.Valid() {
		return fmt.Errorf("%w: reference pair %v", ErrCorruptFrame, p)
	}
	for i := 0; i < 2; i++ {
		if !p[i].IsInter() {
			continue
		}
		if _, err := s.Ref(p[i]); err != nil {
			return err
		}
	}
	return nil
}

// Distance returns the signed order hint distance from the current frame
// to the reference in slot r.
func (s *State) Distance(r block.RefFrame) int {
	b := s.RefBuffer(r)
	if b == nil {
		return 0
	}
	return s.OrderHints.RelativeDist(s.Cur.OrderHint, b.OrderHint)
}

// SetupBufRefs records the order hints of the current references in the
// current buffer so later frames can project through it.
func (s *State) SetupBufRefs() {
	for r := block.Last; r <= block.Altref; r++ {
		if b := s.RefBuffer(r); b != nil {
			s.Cur.RefOrderHints[r.Index()] = b.OrderHint
		}
	}
}

// SetupSignBias marks references that follow the current frame in display
// order.
func (s *State) SetupSignBias() {
	s.SignBias = [block.RefFrames]bool{}
	if !s.OrderHints.Enabled {
		return
	}
	for r := block.Last; r <= block.Altref; r++ {
		b := s.RefBuffer(r)
		if b == nil {
			continue
		}
		s.SignBias[r] = s.OrderHints.RelativeDist(b.OrderHint, s.Cur.OrderHint) > 0
	}
}

// SetupSides classifies each reference as past, future or same order hint.
// All sides stay past when order hints are off.
func (s *State) SetupSides() {
	s.Sides = [block.RefFrames]Side{}
	if !s.OrderHints.Enabled {
		return
	}
	for r := block.Last; r <= block.Altref; r++ {
		oh := 0
		if b := s.RefBuffer(r); b != nil {
			oh = b.OrderHint
		}
		switch {
		case s.OrderHints.RelativeDist(oh, s.Cur.OrderHint) > 0:
			s.Sides[r] = SideFuture
		case oh == s.Cur.OrderHint:
			s.Sides[r] = SideSame
		}
	}
}

// Edges returns the distances from a block of size bs at (miRow, miCol) to
// the frame edges, for vector clamping.
func (s *State) Edges(miRow, miCol int, bs block.Size) mv.Edges {
	return mv.Edges{
		Left:   -(miCol * block.MiSize * 8),
		Right:  (s.MiCols - bs.MiWide() - miCol) * block.MiSize * 8,
		Top:    -(miRow * block.MiSize * 8),
		Bottom: (s.MiRows - bs.MiHigh() - miRow) * block.MiSize * 8,
	}
}
