package refmv

import "github.com/deepteams/mvref/internal/mv"

const (
	// MaxStackSize is the capacity of a candidate stack.
	MaxStackSize = 8
	// MaxMVRefCandidates is the length of the flattened predictor list.
	MaxMVRefCandidates = 2
	// RefCatLevel is the weight bonus of high confidence candidates.
	RefCatLevel = 640
	// RowCols is how many 8x8 rows and columns the outer scan reaches.
	RowCols = 3
)

// Bit positions inside the mode context.
const (
	GlobalMVOffset = 3
	RefMVOffset    = 4
)

// Entry is a candidate with its accumulated weight.
type Entry struct {
	mv.Candidate
	Weight uint16
}

// Stack is a bounded candidate list.
type Stack struct {
	entries [MaxStackSize]Entry
	n       int
}

// Len returns the number of entries.
func (s *Stack) Len() int { return s.n }

// Full reports whether the stack is at capacity.
func (s *Stack) Full() bool { return s.n >= MaxStackSize }

// At returns entry i.
func (s *Stack) At(i int) Entry { return s.entries[i] }

// Entries returns a copy of the live entries.
func (s *Stack) Entries() []Entry {
	out := make([]Entry, s.n)
	copy(out, s.entries[:s.n])
	return out
}

// push appends e and reports false, storing nothing, when full.
func (s *Stack) push(e Entry) bool {
	if s.n >= MaxStackSize {
		return false
	}
	s.entries[s.n] = e
	s.n++
	return true
}

// indexThis returns the first entry whose primary vector is v, or -1.
func (s *Stack) indexThis(v mv.MV) int {
	for i := 0; i < s.n; i++ {
		if s.entries[i].This == v {
			return i
		}
	}
	return -1
}

// indexPair returns the first entry equal to c in both vectors, or -1.
func (s *Stack) indexPair(c mv.Candidate) int {
	for i := 0; i < s.n; i++ {
		if s.entries[i].Candidate == c {
			return i
		}
	}
	return -1
}

// merge adds weight to an entry matching c, or appends c when there is
// room. Only primary vectors are compared unless compound is set.
func (s *Stack) merge(c mv.Candidate, compound bool, weight uint16) {
	idx := -1
	if compound {
		idx = s.indexPair(c)
	} else {
		idx = s.indexThis(c.This)
	}
	if idx >= 0 {
		s.entries[idx].Weight += weight
		return
	}
	s.push(Entry{Candidate: c, Weight: weight})
}

// sortRange orders entries [lo, hi) by descending weight. Equal weights
// keep their scan order.
func (s *Stack) sortRange(lo, hi int) {
	e := s.entries[:]
	for hi > lo {
		last := lo
		for i := lo + 1; i < hi; i++ {
			if e[i-1].Weight < e[i].Weight {
				e[i-1], e[i] = e[i], e[i-1]
				last = i
			}
		}
		hi = last
	}
}
