package motionfield

import (
	"fmt"
	"math"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
)

// StackSize caps how many source frames the labeled schedule projects
// after LAST; the ranked schedule uses it as a cap on total sources.
const StackSize = 3

// Policy chooses which reference stores are projected into a frame's
// temporal motion field, in which direction and in which order.
type Policy interface {
	// Name identifies the policy in configuration.
	Name() string
	// Schedule runs the projections and returns how many sources were
	// projected.
	Schedule(p *Projector, f *Field, s *frame.State) int
}

// Policy names accepted by PolicyByName.
const (
	PolicyRanked  = "ranked"
	PolicyLabeled = "labeled"
)

// PolicyByName returns the named policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case PolicyRanked, "":
		return RankedPolicy{}, nil
	case PolicyLabeled:
		return LabeledPolicy{}, nil
	}
	return nil, fmt.Errorf("motionfield: unknown projection policy %q", name)
}

// Setup rebuilds f for the frame described by s: every unit is emptied,
// the reference sides are classified and, when order hints are enabled,
// the policy projects its sources. It returns the number of sources used.
func Setup(s *frame.State, f *Field, p *Projector, pol Policy) int {
	f.Reset()
	s.SetupSides()
	if !s.OrderHints.Enabled {
		return 0
	}
	return pol.Schedule(p, f, s)
}

// RankedPolicy projects the closest past and future references with
// overwrite, then the second closest future and past ones without it,
// while fewer than StackSize sources have been used. Overlay frames,
// references sharing the current order hint and ineligible stores are
// skipped.
type RankedPolicy struct{}

// Name implements Policy.
func (RankedPolicy) Name() string { return PolicyRanked }

// isOverlay reports whether the reference in slot r shares its order hint
// with one of its own references.
func isOverlay(s *frame.State, r block.RefFrame) bool {
	b := s.RefBuffer(r)
	if b == nil {
		return true
	}
	for _, h := range b.RefOrderHints {
		if h == frame.NoOrderHint {
			continue
		}
		if s.OrderHints.RelativeDist(b.OrderHint, h) == 0 {
			return true
		}
	}
	return false
}

// Schedule implements Policy.
func (RankedPolicy) Schedule(p *Projector, f *Field, s *frame.State) int {
	dist := [2][2]int{{math.MaxInt, math.MaxInt}, {math.MaxInt, math.MaxInt}}
	closest := [2][2]block.RefFrame{{block.None, block.None}, {block.None, block.None}}
	for r := block.Last; r <= block.Altref; r++ {
		side := s.Sides[r]
		if side == frame.SideSame || isOverlay(s, r) || !eligible(s, s.RefBuffer(r)) {
			continue
		}
		d := abs(s.Distance(r))
		switch {
		case d < dist[side][0]:
			dist[side][1], closest[side][1] = dist[side][0], closest[side][0]
			dist[side][0], closest[side][0] = d, r
		case d < dist[side][1]:
			dist[side][1], closest[side][1] = d, r
		}
	}

	used := 0
	project := func(r block.RefFrame, dir Direction, overwrite bool) {
		if r != block.None && p.Project(f, s, r, dir, overwrite) {
			used++
		}
	}
	project(closest[frame.SidePast][0], Backward, true)
	project(closest[frame.SideFuture][0], Forward, true)
	if used < StackSize {
		project(closest[frame.SideFuture][1], Forward, false)
	}
	if used < StackSize {
		project(closest[frame.SidePast][1], Backward, false)
	}
	return used
}

// LabeledPolicy follows the fixed slot schedule: LAST unless it is an
// overlay of GOLDEN, then BWDREF, ALTREF2 and ALTREF when they lie in the
// future, and finally LAST2 while the stack has room.
type LabeledPolicy struct{}

// Name implements Policy.
func (LabeledPolicy) Name() string { return PolicyLabeled }

// Schedule implements Policy.
func (LabeledPolicy) Schedule(p *Projector, f *Field, s *frame.State) int {
	oh := s.OrderHints
	cur := s.Cur.OrderHint
	hint := func(r block.RefFrame) int {
		if b := s.RefBuffer(r); b != nil {
			return b.OrderHint
		}
		return 0
	}
	used := 0
	project := func(r block.RefFrame, dir Direction) bool {
		if p.Project(f, s, r, dir, true) {
			used++
			return true
		}
		return false
	}

	stamp := StackSize - 1
	if last := s.RefBuffer(block.Last); last != nil {
		altOfLast := last.RefOrderHints[block.Altref.Index()]
		if altOfLast != hint(block.Golden) {
			project(block.Last, Backward)
		}
		stamp--
	}
	if oh.RelativeDist(hint(block.Bwdref), cur) > 0 && project(block.Bwdref, Forward) {
		stamp--
	}
	if oh.RelativeDist(hint(block.Altref2), cur) > 0 && project(block.Altref2, Forward) {
		stamp--
	}
	if oh.RelativeDist(hint(block.Altref), cur) > 0 && stamp >= 0 && project(block.Altref, Forward) {
		stamp--
	}
	if stamp >= 0 {
		project(block.Last2, Backward)
	}
	return used
}
