package refmv

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
	"github.com/deepteams/mvref/internal/motionfield"
	"github.com/deepteams/mvref/internal/mv"
	"github.com/deepteams/mvref/internal/refbank"
)

func TestMain(m *testing.M) {
	StrictInvariants = true
	os.Exit(m.Run())
}

const testMi = 16

// newContext returns a 64x64 frame with order hint 8 and LAST (7),
// BWDREF (10) and ALTREF (12) references, all with identity global
// motion.
func newContext() *Context {
	s := &frame.State{
		OrderHints:      frame.OrderHintInfo{Enabled: true, Bits: 7},
		Width:           testMi * block.MiSize,
		Height:          testMi * block.MiSize,
		MiRows:          testMi,
		MiCols:          testMi,
		Type:            frame.InterFrame,
		ReferenceSelect: true,
		Precision:       mv.PrecisionEighth,
	}
	s.Cur = frame.NewBuffer(8, frame.InterFrame, testMi, testMi)
	s.Refs[block.Last.Index()] = frame.NewBuffer(7, frame.InterFrame, testMi, testMi)
	s.Refs[block.Bwdref.Index()] = frame.NewBuffer(10, frame.InterFrame, testMi, testMi)
	s.Refs[block.Altref.Index()] = frame.NewBuffer(12, frame.InterFrame, testMi, testMi)
	for i := range s.Global {
		s.Global[i] = frame.IdentityMotion
	}
	s.SetupSignBias()
	return &Context{
		Frame:      s,
		Grid:       block.NewGrid(testMi, testMi),
		Tile:       block.Tile{MiRowEnd: testMi, MiColEnd: testMi},
		Coded:      block.NewCodedMap(testMi),
		MaxDRLBits: 7,
		Log:        zerolog.Nop(),
	}
}

func place(c *Context, miRow, miCol int, s block.Size, ref block.RefPair, m block.Mode, mvs ...mv.MV) {
	mi := &block.ModeInfo{Size: s, Mode: m, Ref: ref}
	copy(mi.MV[:], mvs)
	c.Grid.Place(miRow, miCol, mi)
}

func entry(this mv.MV, w uint16) Entry {
	return Entry{Candidate: mv.Candidate{This: this}, Weight: w}
}

func find(t *testing.T, c *Context, b Block, ref block.RefPair) Result {
	t.Helper()
	res, err := c.Find(b, ref)
	if err != nil {
		t.Fatalf("Find(%v, %v): %v", b, ref, err)
	}
	return res
}

func TestFindAboveNeighbour(t *testing.T) {
	c := newContext()
	v := mv.MV{Row: 4, Col: -2}
	place(c, 0, 4, block.Size16x16, block.Single(block.Last), block.NearestMV, v)

	res := find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size16x16}, block.Single(block.Last))
	want := []Entry{
		entry(v, 4*4+RefCatLevel),
		entry(mv.Zero, RefCatLevel),
	}
	if diff := cmp.Diff(want, res.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if res.NearestCount != 1 || res.RankedCount != 1 {
		t.Errorf("NearestCount, RankedCount = %d, %d, want 1, 1", res.NearestCount, res.RankedCount)
	}
	if want := int16(3 | 3<<RefMVOffset | 3<<8); res.Context != want {
		t.Errorf("Context = %#x, want %#x", res.Context, want)
	}
	if want := [2]mv.MV{v, mv.Zero}; res.List != want {
		t.Errorf("List = %v, want %v", res.List, want)
	}
}

func TestFindNoNeighboursUsesGlobal(t *testing.T) {
	c := newContext()
	c.Frame.Global[block.Last] = frame.GlobalMotion{Type: frame.Translation, Mat: [6]int32{5 << 13, -2 << 13}}
	gm := mv.MV{Row: 5, Col: -2}
	b := Block{Size: block.Size8x8}

	res := find(t, c, b, block.Single(block.Last))
	if diff := cmp.Diff([]Entry{entry(gm, RefCatLevel)}, res.Stack); diff != "" {
		t.Errorf("single stack mismatch (-want +got):\n%s", diff)
	}
	if want := [2]mv.MV{gm, gm}; res.List != want {
		t.Errorf("List = %v, want %v", res.List, want)
	}
	if want := int16(3 << 8); res.Context != want {
		t.Errorf("Context = %#x, want %#x", res.Context, want)
	}

	res = find(t, c, b, block.Compound(block.Last, block.Altref))
	pair := Entry{Candidate: mv.Candidate{This: gm}, Weight: 2}
	if diff := cmp.Diff([]Entry{pair, pair}, res.Stack); diff != "" {
		t.Errorf("compound stack mismatch (-want +got):\n%s", diff)
	}
	if res.Stack[0].This != res.Global[0] || res.Stack[0].Comp != res.Global[1] {
		t.Errorf("first entry %v is not the global pair %v", res.Stack[0], res.Global)
	}
}

func TestFindSortsPartitions(t *testing.T) {
	c := newContext()
	last := block.Single(block.Last)
	a := mv.MV{Row: 8}
	b := mv.MV{Col: 8}
	cv := mv.MV{Row: -8, Col: 8}
	d := mv.MV{Row: 16, Col: -16}
	place(c, 2, 4, block.Size8x8, last, block.NearestMV, a)  // above
	place(c, 4, 2, block.Size8x8, last, block.NearestMV, b)  // left
	place(c, 2, 6, block.Size8x8, last, block.NearestMV, b)  // top-right
	place(c, 3, 3, block.Size4x4, last, block.NearestMV, d)  // top-left
	place(c, 0, 4, block.Size8x8, last, block.NearestMV, cv) // third row above
	place(c, 4, 0, block.Size8x8, last, block.NearestMV, cv) // third column left
	c.Coded.Mark(2, 6, block.Size8x8)

	res := find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}, last)
	want := []Entry{
		entry(b, 8+RefCatLevel),
		entry(a, 4+RefCatLevel),
		entry(cv, 8),
		entry(d, 4),
		entry(mv.Zero, RefCatLevel),
	}
	if diff := cmp.Diff(want, res.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if res.NearestCount != 2 || res.RankedCount != 4 {
		t.Errorf("NearestCount, RankedCount = %d, %d, want 2, 4", res.NearestCount, res.RankedCount)
	}
	if want := int16(5 | 5<<RefMVOffset | 5<<8); res.Context != want {
		t.Errorf("Context = %#x, want %#x", res.Context, want)
	}
}

func TestFindTopRightNeedsCodedUnit(t *testing.T) {
	c := newContext()
	last := block.Single(block.Last)
	place(c, 2, 6, block.Size8x8, last, block.NewMV, mv.MV{Col: 8})

	res := find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}, last)
	if res.NearestCount != 0 {
		t.Errorf("undecoded top-right contributed: %v", res.Stack)
	}
	c.Coded.Mark(2, 6, block.Size8x8)
	res = find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}, last)
	if res.NearestCount != 1 {
		t.Errorf("NearestCount = %d, want 1", res.NearestCount)
	}
	// A top-right match counts as a row match with a new vector.
	if got := res.Context & 0xff; got != 2|3<<RefMVOffset {
		t.Errorf("Context low byte = %#x, want %#x", got, 2|3<<RefMVOffset)
	}
}

func TestFindTemporal(t *testing.T) {
	c := newContext()
	c.Frame.AllowRefFrameMVs = true
	f := motionfield.NewField(testMi, testMi)
	defer f.Release()
	f.Set(2, 2, motionfield.TemporalMV{MV: mv.MV{Row: 16, Col: -8}, Offset: 1})
	f.Set(3, 3, motionfield.TemporalMV{MV: mv.MV{Col: 32}, Offset: 2})
	c.Field = f

	res := find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}, block.Single(block.Last))
	want := []Entry{
		entry(mv.MV{Row: 16, Col: -8}, 2),
		entry(mv.MV{Col: 16}, 2),
		entry(mv.Zero, RefCatLevel),
	}
	if diff := cmp.Diff(want, res.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if want := int16(1<<GlobalMVOffset | 3<<8); res.Context != want {
		t.Errorf("Context = %#x, want %#x", res.Context, want)
	}

	// Without a sample at the block origin the global bit is set too.
	f.Reset()
	res = find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}, block.Single(block.Last))
	if res.Context&(1<<GlobalMVOffset) == 0 {
		t.Errorf("Context = %#x, global bit clear", res.Context)
	}
}

func TestFindCompoundMatch(t *testing.T) {
	c := newContext()
	ref := block.Compound(block.Last, block.Altref)
	pair := mv.Candidate{This: mv.MV{Row: 4, Col: 4}, Comp: mv.MV{Row: -4, Col: -4}}
	place(c, 0, 2, block.Size8x8, ref, block.NewNewMV, pair.This, pair.Comp)

	res := find(t, c, Block{MiRow: 2, MiCol: 2, Size: block.Size8x8}, ref)
	// Completion rebuilds the same pair from the neighbour.
	want := []Entry{
		{Candidate: pair, Weight: 4 + RefCatLevel},
		{Candidate: pair, Weight: 2},
	}
	if diff := cmp.Diff(want, res.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if want := int16(2 | 3<<RefMVOffset | 2<<8); res.Context != want {
		t.Errorf("Context = %#x, want %#x", res.Context, want)
	}
}

func TestFindCompoundCompletion(t *testing.T) {
	c := newContext()
	place(c, 0, 2, block.Size8x8, block.Single(block.Last), block.NewMV, mv.MV{Row: 8, Col: 8})
	place(c, 2, 0, block.Size8x8, block.Single(block.Altref), block.NewMV, mv.MV{Row: 16})

	res := find(t, c, Block{MiRow: 2, MiCol: 2, Size: block.Size8x8}, block.Compound(block.Last, block.Altref))
	want := []Entry{
		{Candidate: mv.Candidate{This: mv.MV{Row: 8, Col: 8}, Comp: mv.MV{Row: 16}}, Weight: 2},
		{Candidate: mv.Candidate{This: mv.MV{Row: -16}, Comp: mv.MV{Row: -8, Col: -8}}, Weight: 2},
	}
	if diff := cmp.Diff(want, res.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if res.Context != 2<<8 {
		t.Errorf("Context = %#x, want %#x", res.Context, 2<<8)
	}
}

func TestFindSingleCompletionSignBias(t *testing.T) {
	c := newContext()
	place(c, 2, 4, block.Size8x8, block.Single(block.Altref), block.NewMV, mv.MV{Row: 8, Col: -4})

	res := find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}, block.Single(block.Last))
	want := []Entry{
		entry(mv.MV{Row: -8, Col: 4}, 2),
		entry(mv.Zero, RefCatLevel),
	}
	if diff := cmp.Diff(want, res.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if want := [2]mv.MV{{Row: -8, Col: 4}, mv.Zero}; res.List != want {
		t.Errorf("List = %v, want %v", res.List, want)
	}
}

func TestFindClampsCompletion(t *testing.T) {
	c := newContext()
	place(c, 2, 0, block.Size8x8, block.Single(block.Altref), block.NewMV, mv.MV{Col: 2000})

	res := find(t, c, Block{MiRow: 2, MiCol: 2, Size: block.Size8x8}, block.Single(block.Last))
	// The left edge allows 2*4*8 + 8*8 + 128 below zero.
	if got := res.Stack[0].This; got != (mv.MV{Col: -256}) {
		t.Errorf("clamped vector = %v, want {0 -256}", got)
	}
}

func bankWith(t *testing.T, ref block.RefPair, cols ...int16) *refbank.Set {
	t.Helper()
	s := refbank.NewSet(refbank.DefaultSize)
	for _, col := range cols {
		s.Update(&block.ModeInfo{Size: block.Size8x8, Mode: block.NewMV, Ref: ref, MV: [2]mv.MV{{Col: col}}})
	}
	return s
}

func TestFindBankFill(t *testing.T) {
	last := block.Single(block.Last)
	b := Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}

	tests := []struct {
		name    string
		drlBits int
		above   bool
		want    []int16
		ctxHigh int16
	}{
		{name: "left only", drlBits: 7, want: []int16{0, 128, 64}, ctxHigh: 7},
		{name: "limit", drlBits: 1, want: []int16{0, 128}, ctxHigh: 7},
		{name: "round robin", drlBits: 7, above: true, want: []int16{0, 128, 32, 64}, ctxHigh: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newContext()
			c.MaxDRLBits = tt.drlBits
			// -320 points 24 pixels left of the frame.
			c.Left = bankWith(t, last, -320, 64, 128, 0)
			if tt.above {
				c.Above = refbank.NewColumns(testMi, testMi, refbank.DefaultSize)
				c.Above.For(b.MiCol).Update(&block.ModeInfo{Size: block.Size8x8, Mode: block.NewMV, Ref: last, MV: [2]mv.MV{{Col: 32}}})
			}
			res := find(t, c, b, last)
			var got []int16
			for _, e := range res.Stack {
				got = append(got, e.This.Col)
				if e.Weight != RefCatLevel {
					t.Errorf("entry %v weight %d, want %d", e.This, e.Weight, RefCatLevel)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("stack columns mismatch (-want +got):\n%s", diff)
			}
			if h := res.Context >> 8; h != tt.ctxHigh {
				t.Errorf("expected count = %d, want %d", h, tt.ctxHigh)
			}
		})
	}
}

func TestFindCorruptReference(t *testing.T) {
	c := newContext()
	_, err := c.Find(Block{Size: block.Size8x8}, block.Single(block.Golden))
	if !errors.Is(err, frame.ErrCorruptFrame) {
		t.Errorf("err = %v, want ErrCorruptFrame", err)
	}
}

func TestFindIntra(t *testing.T) {
	c := newContext()
	c.Left = bankWith(t, block.Single(block.Last), 64)
	place(c, 2, 4, block.Size8x8, block.Single(block.Last), block.NewMV, mv.MV{Col: 8})

	res := find(t, c, Block{MiRow: 4, MiCol: 4, Size: block.Size8x8}, block.Single(block.Intra))
	// Intra requests only see inter neighbours through completion.
	want := []Entry{entry(mv.MV{Col: 8}, 2), entry(mv.Zero, RefCatLevel)}
	if diff := cmp.Diff(want, res.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
}

func TestStackCapacity(t *testing.T) {
	var s Stack
	for i := 0; i < MaxStackSize+3; i++ {
		s.merge(mv.Candidate{This: mv.MV{Row: int16(i)}}, false, 2)
	}
	if s.Len() != MaxStackSize {
		t.Errorf("Len = %d, want %d", s.Len(), MaxStackSize)
	}
	s.merge(mv.Candidate{This: mv.MV{Row: 3}}, false, 10)
	if got := s.At(3).Weight; got != 12 {
		t.Errorf("merged weight = %d, want 12", got)
	}
}

func TestStackSortIsStable(t *testing.T) {
	var s Stack
	weights := []uint16{4, 8, 4, 8, 2}
	for i, w := range weights {
		s.push(Entry{Candidate: mv.Candidate{This: mv.MV{Col: int16(i)}}, Weight: w})
	}
	s.sortRange(0, s.Len())
	var order []int16
	for _, e := range s.Entries() {
		order = append(order, e.This.Col)
	}
	if diff := cmp.Diff([]int16{1, 3, 0, 2, 4}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFindBestRefMVs(t *testing.T) {
	nearest, near := FindBestRefMVs(mv.PrecisionQuarter, [2]mv.MV{{Row: 5, Col: -3}, {Row: 13}})
	if nearest != (mv.MV{Row: 4, Col: -2}) || near != (mv.MV{Row: 12}) {
		t.Errorf("FindBestRefMVs = %v, %v", nearest, near)
	}
}

func TestViolationLogs(t *testing.T) {
	StrictInvariants = false
	defer func() { StrictInvariants = true }()

	var buf bytes.Buffer
	c := newContext()
	c.Log = zerolog.New(&buf)
	c.violation(Block{MiRow: 3, MiCol: 5, Size: block.Size8x8}, block.Single(block.Last), "broken")
	out := buf.String()
	for _, s := range []string{`"level":"error"`, `"mi_row":3`, `"mi_col":5`, `"ref":"LAST"`, "broken"} {
		if !strings.Contains(out, s) {
			t.Errorf("log %q lacks %q", out, s)
		}
	}
}

func TestViolationPanicsWhenStrict(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic")
		}
	}()
	newContext().violation(Block{}, block.Single(block.Last), "broken")
}
