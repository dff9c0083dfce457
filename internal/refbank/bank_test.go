package refbank

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

func cand(row int16) mv.Candidate { return mv.Candidate{This: mv.MV{Row: row}} }

func newBank(size int) *Bank {
	b := &Bank{}
	b.init(size)
	return b
}

func TestBankEvictsOldest(t *testing.T) {
	const size = 4
	b := newBank(size)
	for i := int16(1); i <= 7; i++ {
		b.Update(cand(i), false)
	}
	if b.Len() != size {
		t.Fatalf("Len = %d, want %d", b.Len(), size)
	}
	want := []mv.Candidate{cand(4), cand(5), cand(6), cand(7)}
	if diff := cmp.Diff(want, b.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < size; i++ {
		if got := b.MRU(i); got != cand(int16(7-i)) {
			t.Errorf("MRU(%d) = %v, want %v", i, got, cand(int16(7-i)))
		}
	}
}

func TestBankPromotesOnReuse(t *testing.T) {
	b := newBank(4)
	for i := int16(1); i <= 6; i++ {
		b.Update(cand(i), false)
	}
	// Ring has wrapped; 4 sits in the middle of the backing array order.
	b.Update(cand(4), false)
	if b.Len() != 4 {
		t.Errorf("Len = %d after reuse, want 4", b.Len())
	}
	want := []mv.Candidate{cand(3), cand(5), cand(6), cand(4)}
	if diff := cmp.Diff(want, b.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	// Reusing the most recent entry is a no-op.
	b.Update(cand(4), false)
	if diff := cmp.Diff(want, b.Entries()); diff != "" {
		t.Errorf("entries after MRU reuse (-want +got):\n%s", diff)
	}
}

func TestBankCompoundCompare(t *testing.T) {
	b := newBank(DefaultSize)
	a := mv.Candidate{This: mv.MV{Row: 1}, Comp: mv.MV{Col: 1}}
	c := mv.Candidate{This: mv.MV{Row: 1}, Comp: mv.MV{Col: 2}}
	b.Update(a, true)
	b.Update(c, true)
	if b.Len() != 2 {
		t.Errorf("compound: Len = %d, want 2", b.Len())
	}
	s := newBank(DefaultSize)
	s.Update(a, false)
	s.Update(c, false)
	if s.Len() != 1 {
		t.Errorf("single: Len = %d, want 1", s.Len())
	}
}

func TestBankManyInsertions(t *testing.T) {
	b := newBank(DefaultSize)
	const n = 3*DefaultSize + 5
	for i := 0; i < n; i++ {
		b.Update(cand(int16(i)), false)
	}
	for i := 0; i < DefaultSize; i++ {
		if got := b.MRU(i); got != cand(int16(n-1-i)) {
			t.Fatalf("MRU(%d) = %v, want %v", i, got, cand(int16(n-1-i)))
		}
	}
}

func TestSetKeysByRefType(t *testing.T) {
	s := NewSet(DefaultSize)
	last := &block.ModeInfo{Size: block.Size8x8, Mode: block.NewMV, Ref: block.Single(block.Last), MV: [2]mv.MV{{Row: 2}}}
	comp := &block.ModeInfo{Size: block.Size8x8, Mode: block.NewNewMV, Ref: block.Compound(block.Last, block.Altref), MV: [2]mv.MV{{Row: 2}, {Col: 3}}}
	intra := &block.ModeInfo{Size: block.Size8x8, Ref: block.Single(block.Intra)}
	s.Update(last)
	s.Update(comp)
	s.Update(intra)
	if s.Bank(last.Ref).Len() != 1 || s.Bank(comp.Ref).Len() != 1 {
		t.Errorf("bank lengths = %d, %d, want 1, 1", s.Bank(last.Ref).Len(), s.Bank(comp.Ref).Len())
	}
	if s.Bank(block.Single(block.Intra)).Len() != 0 {
		t.Error("intra block updated a bank")
	}
	if got := s.Bank(comp.Ref).MRU(0); got.Comp != (mv.MV{Col: 3}) {
		t.Errorf("compound entry = %v", got)
	}
	s.Reset()
	if s.Bank(last.Ref).Len() != 0 {
		t.Error("Reset kept entries")
	}
}

func TestColumns(t *testing.T) {
	c := NewColumns(40, 16, 8)
	if c.For(0) == c.For(16) {
		t.Error("distinct superblock columns share a set")
	}
	if c.For(15) != c.For(0) || c.For(39) != c.For(32) {
		t.Error("same superblock column maps to different sets")
	}
	if c.For(100) != c.For(32) {
		t.Error("column past the frame not clamped")
	}
	if got := c.For(0).Bank(block.Single(block.Last)).Cap(); got != 8 {
		t.Errorf("Cap = %d, want 8", got)
	}
}
