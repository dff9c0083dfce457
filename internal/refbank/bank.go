// Package refbank implements the reference motion vector bank: a small
// most-recently-used history of the vectors decoded in a region, kept per
// reference frame type and consulted when neighbouring blocks do not fill
// the candidate stack.
package refbank

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

// DefaultSize is the default capacity of one bank.
const DefaultSize = 32

// MaxSize is the largest supported capacity.
const MaxSize = 64

// Bank is a fixed-capacity ring of candidates in least to most recently
// used order. Inserting past capacity evicts the oldest entry.
type Bank struct {
	size  int
	start int
	count int
	buf   [MaxSize]mv.Candidate
}

func (b *Bank) init(size int) {
	b.size = min(max(size, 1), MaxSize)
	b.Reset()
}

// Cap returns the capacity of b.
func (b *Bank) Cap() int { return b.size }

// Len returns the number of entries in b.
func (b *Bank) Len() int { return b.count }

// Reset empties b.
func (b *Bank) Reset() { b.start, b.count = 0, 0 }

func (b *Bank) slot(i int) int { return (b.start + i) % b.size }

// MRU returns the i-th most recently used entry, i in [0, Len()).
func (b *Bank) MRU(i int) mv.Candidate { return b.buf[b.slot(b.count-1-i)] }

// Entries returns the entries from least to most recently used.
func (b *Bank) Entries() []mv.Candidate {
	out := make([]mv.Candidate, b.count)
	for i := range out {
		out[i] = b.buf[b.slot(i)]
	}
	return out
}

// Update records c as the most recently used entry. An equal entry is
// moved to the tail instead of being duplicated; companions are only
// compared when compound is set.
func (b *Bank) Update(c mv.Candidate, compound bool) {
	found := -1
	for i := 0; i < b.count; i++ {
		e := b.buf[b.slot(i)]
		if e.This == c.This && (!compound || e.Comp == c.Comp) {
			found = i
			break
		}
	}
	if found >= 0 {
		hit := b.buf[b.slot(found)]
		for i := found; i < b.count-1; i++ {
			b.buf[b.slot(i)] = b.buf[b.slot(i+1)]
		}
		b.buf[b.slot(b.count-1)] = hit
		return
	}
	b.buf[b.slot(b.count)] = c
	if b.count < b.size {
		b.count++
	} else {
		b.start = (b.start + 1) % b.size
	}
}

// Set holds one bank per reference frame type.
type Set struct {
	banks [block.RefTypes]Bank
}

// NewSet returns empty banks of the given capacity.
func NewSet(size int) *Set {
	s := &Set{}
	for i := range s.banks {
		s.banks[i].init(size)
	}
	return s
}

// Bank returns the bank for reference pair p.
func (s *Set) Bank(p block.RefPair) *Bank { return &s.banks[p.Type()] }

// Update records the final vectors of a decoded inter block.
func (s *Set) Update(mi *block.ModeInfo) {
	if !mi.IsInter() {
		return
	}
	s.Bank(mi.Ref).Update(mi.Candidate(), mi.HasSecondRef())
}

// Reset empties every bank.
func (s *Set) Reset() {
	for i := range s.banks {
		s.banks[i].Reset()
	}
}

// Columns holds one bank set per superblock column of a tile, for the
// banks of the rows above the current block.
type Columns struct {
	sbMi int
	sets []*Set
}

// NewColumns returns above banks covering miCols columns with superblocks
// of sbMi units.
func NewColumns(miCols, sbMi, size int) *Columns {
	n := (miCols + sbMi - 1) / sbMi
	c := &Columns{sbMi: sbMi, sets: make([]*Set, n)}
	for i := range c.sets {
		c.sets[i] = NewSet(size)
	}
	return c
}

// For returns the bank set for the superblock column containing miCol.
func (c *Columns) For(miCol int) *Set {
	idx := min(max(miCol/c.sbMi, 0), len(c.sets)-1)
	return c.sets[idx]
}

// Reset empties every column.
func (c *Columns) Reset() {
	for _, s := range c.sets {
		s.Reset()
	}
}
