package motionfield

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
	"github.com/deepteams/mvref/internal/mv"
)

const testMi = 16

func newState(cur int) *frame.State {
	s := &frame.State{
		OrderHints: frame.OrderHintInfo{Enabled: true, Bits: 7},
		MiRows:     testMi,
		MiCols:     testMi,
		Type:       frame.InterFrame,
	}
	s.Cur = frame.NewBuffer(cur, frame.InterFrame, testMi, testMi)
	return s
}

// newRef builds a reference whose store holds LAST units at the given
// positions. refHint is the order hint of that reference's own LAST.
func newRef(t *testing.T, oh, refHint int, units map[[2]int]mv.MV) *frame.Buffer {
	t.Helper()
	b := frame.NewBuffer(oh, frame.InterFrame, testMi, testMi)
	b.RefOrderHints[block.Last.Index()] = refHint
	AllocStore(b)
	t.Cleanup(func() { ReleaseStore(b) })
	for pos, v := range units {
		if !b.MVs.Set(pos[0], pos[1], frame.StoredMV{MV: v, Ref: block.Last}) {
			t.Fatalf("unit %v outside store", pos)
		}
	}
	return b
}

func newField(t *testing.T) *Field {
	t.Helper()
	f := NewField(testMi, testMi)
	t.Cleanup(f.Release)
	return f
}

func TestCopyBlock(t *testing.T) {
	s := newState(10)
	s.Refs[block.Last.Index()] = frame.NewBuffer(8, frame.InterFrame, testMi, testMi)
	s.Refs[block.Bwdref.Index()] = frame.NewBuffer(12, frame.InterFrame, testMi, testMi)
	s.SetupSides()
	AllocStore(s.Cur)
	defer ReleaseStore(s.Cur)

	tests := []struct {
		name         string
		mi           block.ModeInfo
		miRow, miCol int
		want         frame.StoredMV
	}{
		{
			name:  "past reference",
			mi:    block.ModeInfo{Size: block.Size16x16, Ref: block.Single(block.Last), MV: [2]mv.MV{{Row: 3, Col: 4}}},
			miRow: 0, miCol: 0,
			want: frame.StoredMV{MV: mv.MV{Row: 3, Col: 4}, Ref: block.Last},
		},
		{
			name:  "future reference",
			mi:    block.ModeInfo{Size: block.Size8x8, Ref: block.Single(block.Bwdref), MV: [2]mv.MV{{Row: 3, Col: 4}}},
			miRow: 4, miCol: 4,
			want: frame.StoredMV{Ref: block.None},
		},
		{
			name:  "vector too large",
			mi:    block.ModeInfo{Size: block.Size8x8, Ref: block.Single(block.Last), MV: [2]mv.MV{{Row: mv.RefMVsLimit + 1}}},
			miRow: 6, miCol: 6,
			want: frame.StoredMV{Ref: block.None},
		},
		{
			name:  "compound keeps past slot",
			mi:    block.ModeInfo{Size: block.Size8x8, Ref: block.Compound(block.Last, block.Bwdref), MV: [2]mv.MV{{Row: 1}, {Row: 2}}},
			miRow: 8, miCol: 8,
			want: frame.StoredMV{MV: mv.MV{Row: 1}, Ref: block.Last},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			CopyBlock(s, &tt.mi, tt.miRow, tt.miCol)
			rows, cols := (tt.mi.Size.MiHigh()+1)>>1, (tt.mi.Size.MiWide()+1)>>1
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					got := s.Cur.MVs.At(tt.miRow>>1+r, tt.miCol>>1+c)
					if diff := cmp.Diff(tt.want, got); diff != "" {
						t.Errorf("unit (%d, %d) mismatch (-want +got):\n%s", r, c, diff)
					}
				}
			}
		})
	}
}

func TestProjectMoves(t *testing.T) {
	s := newState(10)
	// LAST at distance 2 whose own reference is 2 further back.
	s.Refs[block.Last.Index()] = newRef(t, 8, 6, map[[2]int]mv.MV{
		{4, 4}: {Row: 128, Col: -128},
		{1, 1}: {},
	})
	f := newField(t)
	p := &Projector{Window: DefaultWindow}
	if !p.Project(f, s, block.Last, Backward, true) {
		t.Fatal("LAST not eligible")
	}
	want := TemporalMV{MV: mv.MV{Row: 128, Col: -128}, Offset: 2}
	if got := f.At(2, 6); got != want {
		t.Errorf("moved unit = %+v, want %+v", got, want)
	}
	if got := f.At(1, 1); got != (TemporalMV{Offset: 2}) {
		t.Errorf("still unit = %+v", got)
	}
	if f.Count() != 2 {
		t.Errorf("Count = %d, want 2", f.Count())
	}
}

func TestProjectWindow(t *testing.T) {
	const miRows = 2 * testMi
	s := newState(10)
	s.MiRows = miRows
	last := frame.NewBuffer(8, frame.InterFrame, miRows, testMi)
	last.RefOrderHints[block.Last.Index()] = 6
	AllocStore(last)
	defer ReleaseStore(last)
	// Unit (8, 0) moves two units up, out of its 64x64 row band; unit
	// (9, 0) stays.
	last.MVs.Set(8, 0, frame.StoredMV{MV: mv.MV{Row: 128}, Ref: block.Last})
	last.MVs.Set(9, 0, frame.StoredMV{Ref: block.Last})
	s.Refs[block.Last.Index()] = last

	f := NewField(miRows, testMi)
	defer f.Release()
	p := &Projector{Window: DefaultWindow}
	p.Project(f, s, block.Last, Backward, true)
	if f.Count() != 1 || !f.At(9, 0).Valid() {
		t.Errorf("Count = %d, want only unit (9, 0)", f.Count())
	}

	// A taller window admits the move.
	f.Reset()
	p.Window.Height = 64
	p.Project(f, s, block.Last, Backward, true)
	if !f.At(6, 0).Valid() {
		t.Error("taller window rejected the move")
	}
}

func TestProjectNoOverwrite(t *testing.T) {
	s := newState(10)
	s.Refs[block.Last.Index()] = newRef(t, 8, 6, map[[2]int]mv.MV{{3, 3}: {Row: 8}})
	s.Refs[block.Bwdref.Index()] = newRef(t, 12, 8, map[[2]int]mv.MV{{3, 3}: {Row: 16}})
	f := newField(t)
	p := &Projector{Window: DefaultWindow}
	p.Project(f, s, block.Last, Backward, true)
	p.Project(f, s, block.Bwdref, Forward, false)
	if got := f.At(3, 3).MV; got != (mv.MV{Row: 8}) {
		t.Errorf("no overwrite: unit = %v, want first writer", got)
	}
	p.Project(f, s, block.Bwdref, Forward, true)
	if got := f.At(3, 3); got != (TemporalMV{MV: mv.MV{Row: 16}, Offset: 4}) {
		t.Errorf("overwrite: unit = %+v", got)
	}
}

func TestProjectIneligible(t *testing.T) {
	s := newState(10)
	intra := newRef(t, 8, 6, map[[2]int]mv.MV{{0, 0}: {}})
	intra.Type = frame.KeyFrame
	s.Refs[block.Last.Index()] = intra
	resized := newRef(t, 8, 6, map[[2]int]mv.MV{{0, 0}: {}})
	resized.MiCols = testMi * 2
	s.Refs[block.Last2.Index()] = resized

	f := newField(t)
	p := &Projector{Window: DefaultWindow}
	for _, r := range []block.RefFrame{block.Last, block.Last2, block.Golden} {
		if p.Project(f, s, r, Backward, true) {
			t.Errorf("%v projected", r)
		}
	}
	if f.Count() != 0 {
		t.Errorf("Count = %d, want 0", f.Count())
	}
}

// scheduleState has past LAST (distance 2) and LAST2 (4) and future BWDREF
// (2) and ALTREF (6), each writing one distinct unit in row 0.
func scheduleState(t *testing.T) *frame.State {
	s := newState(10)
	s.Refs[block.Last.Index()] = newRef(t, 8, 6, map[[2]int]mv.MV{{0, 0}: {}})
	s.Refs[block.Last2.Index()] = newRef(t, 6, 4, map[[2]int]mv.MV{{0, 1}: {}})
	s.Refs[block.Bwdref.Index()] = newRef(t, 12, 8, map[[2]int]mv.MV{{0, 2}: {}})
	s.Refs[block.Altref.Index()] = newRef(t, 16, 8, map[[2]int]mv.MV{{0, 3}: {}})
	return s
}

func rowZero(f *Field) [4]bool {
	var out [4]bool
	for c := range out {
		out[c] = f.At(0, c).Valid()
	}
	return out
}

func TestRankedPolicy(t *testing.T) {
	s := scheduleState(t)
	f := newField(t)
	used := Setup(s, f, &Projector{Window: DefaultWindow}, RankedPolicy{})
	if used != 3 {
		t.Errorf("used = %d, want 3", used)
	}
	if diff := cmp.Diff([4]bool{true, false, true, true}, rowZero(f)); diff != "" {
		t.Errorf("projected sources mismatch (-want +got):\n%s", diff)
	}
	if got := f.At(0, 3).Offset; got != 8 {
		t.Errorf("ALTREF offset = %d, want 8", got)
	}
}

func TestRankedPolicySkipsOverlay(t *testing.T) {
	s := scheduleState(t)
	// BWDREF becomes an overlay of one of its own references.
	s.Refs[block.Bwdref.Index()].RefOrderHints[block.Golden.Index()] = 12
	f := newField(t)
	used := Setup(s, f, &Projector{Window: DefaultWindow}, RankedPolicy{})
	if used != 3 {
		t.Errorf("used = %d, want 3", used)
	}
	if diff := cmp.Diff([4]bool{true, true, false, true}, rowZero(f)); diff != "" {
		t.Errorf("projected sources mismatch (-want +got):\n%s", diff)
	}
}

func TestLabeledPolicy(t *testing.T) {
	s := scheduleState(t)
	s.Refs[block.Golden.Index()] = frame.NewBuffer(4, frame.InterFrame, testMi, testMi)
	f := newField(t)
	p := &Projector{Window: DefaultWindow}
	if used := Setup(s, f, p, LabeledPolicy{}); used != 3 {
		t.Errorf("used = %d, want 3", used)
	}
	if diff := cmp.Diff([4]bool{true, false, true, true}, rowZero(f)); diff != "" {
		t.Errorf("projected sources mismatch (-want +got):\n%s", diff)
	}

	// LAST is an overlay of GOLDEN: skipped, but still takes a stack slot.
	s.Refs[block.Last.Index()].RefOrderHints[block.Altref.Index()] = 4
	if used := Setup(s, f, p, LabeledPolicy{}); used != 2 {
		t.Errorf("overlay LAST: used = %d, want 2", used)
	}
	if diff := cmp.Diff([4]bool{false, false, true, true}, rowZero(f)); diff != "" {
		t.Errorf("overlay LAST mismatch (-want +got):\n%s", diff)
	}
}

func TestSetupWithoutOrderHints(t *testing.T) {
	s := scheduleState(t)
	s.OrderHints.Enabled = false
	f := newField(t)
	f.Set(0, 0, TemporalMV{MV: mv.MV{Row: 1}, Offset: 1})
	if used := Setup(s, f, &Projector{Window: DefaultWindow}, RankedPolicy{}); used != 0 {
		t.Errorf("used = %d, want 0", used)
	}
	if f.Count() != 0 {
		t.Errorf("Count = %d after reset, want 0", f.Count())
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{PolicyRanked, PolicyLabeled} {
		p, err := PolicyByName(name)
		if err != nil || p.Name() != name {
			t.Errorf("PolicyByName(%q) = %v, %v", name, p, err)
		}
	}
	if _, err := PolicyByName("closest"); err == nil {
		t.Error("unknown policy accepted")
	}
}

func TestFieldAtMi(t *testing.T) {
	f := newField(t)
	f.Set(2, 3, TemporalMV{MV: mv.MV{Col: 5}, Offset: 1})
	if got := f.AtMi(5, 7); got.MV.Col != 5 {
		t.Errorf("AtMi(5, 7) = %+v", got)
	}
	if f.AtMi(-1, 0).Valid() || f.AtMi(testMi, 0).Valid() {
		t.Error("AtMi outside the field is valid")
	}
}
