// Package warp collects the neighbour motion samples that a local warp
// model is fitted to, and filters out samples that disagree with the
// block's own vector.
package warp

import (
	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/mv"
)

// SamplesMax is the largest number of samples collected for one block.
const SamplesMax = 8

// Point is a position in 1/8 pel relative to the block's top-left pixel.
type Point struct {
	X, Y int
}

// Sample pairs a neighbour centre with where its vector maps it in the
// reference frame.
type Sample struct {
	Pt    Point
	InRef Point
}

// Collector finds warp samples around blocks of one tile.
type Collector struct {
	Grid   *block.Grid
	Tile   block.Tile
	Coded  *block.CodedMap
	MiRows int
	MiCols int

	// Compound also samples neighbours whose second reference matches.
	// Otherwise only single reference neighbours count.
	Compound bool
}

type collection struct {
	ref     block.RefFrame
	both    bool
	samples []Sample
}

func (s *collection) full() bool { return len(s.samples) >= SamplesMax }

// record adds the samples of neighbour mi placed at (rowOff, colOff) mi
// units from the block, with its centre on the side given by the signs.
func (s *collection) record(mi *block.ModeInfo, rowOff, signR, colOff, signC int) {
	slots := 1
	if s.both && mi.HasSecondRef() {
		slots = 2
	}
	for i := 0; i < slots && !s.full(); i++ {
		if mi.Ref[i] != s.ref {
			continue
		}
		if !s.both && mi.Ref[1] != block.None {
			continue
		}
		x := colOff*block.MiSize + signC*max(mi.Size.Wide(), block.MiSize)/2 - 1
		y := rowOff*block.MiSize + signR*max(mi.Size.High(), block.MiSize)/2 - 1
		pt := Point{X: x * 8, Y: y * 8}
		v := mi.MV[i]
		s.samples = append(s.samples, Sample{
			Pt:    pt,
			InRef: Point{X: pt.X + int(v.Col), Y: pt.Y + int(v.Row)},
		})
	}
}

// FindSamples returns up to SamplesMax samples from the neighbours of the
// block of size bs at (miRow, miCol) that use reference ref: the row
// above, the column left and the top-left and top-right corners.
func (c *Collector) FindSamples(miRow, miCol int, bs block.Size, ref block.RefFrame) []Sample {
	s := &collection{ref: ref, both: c.Compound, samples: make([]Sample, 0, SamplesMax)}
	w, h := bs.MiWide(), bs.MiHigh()
	up := c.Tile.UpAvailable(miRow)
	left := c.Tile.LeftAvailable(miCol)
	doTL, doTR := true, true

	if up {
		if mi := c.Grid.At(miRow-1, miCol); mi != nil {
			if aw := mi.Size.MiWide(); w <= aw {
				colOff := -miCol % aw
				if colOff < 0 {
					doTL = false
				}
				if colOff+aw > w {
					doTR = false
				}
				s.record(mi, 0, -1, colOff, 1)
			} else {
				end := min(w, c.MiCols-miCol)
				for i := 0; i < end && !s.full(); {
					mi := c.Grid.At(miRow-1, miCol+i)
					if mi == nil {
						break
					}
					s.record(mi, 0, -1, i, 1)
					i += min(w, mi.Size.MiWide())
				}
			}
		}
	}
	if s.full() {
		return s.samples
	}

	if left {
		if mi := c.Grid.At(miRow, miCol-1); mi != nil {
			if lh := mi.Size.MiHigh(); h <= lh {
				rowOff := -miRow % lh
				if rowOff < 0 {
					doTL = false
				}
				s.record(mi, rowOff, 1, 0, -1)
			} else {
				end := min(h, c.MiRows-miRow)
				for i := 0; i < end && !s.full(); {
					mi := c.Grid.At(miRow+i, miCol-1)
					if mi == nil {
						break
					}
					s.record(mi, i, 1, 0, -1)
					i += min(h, mi.Size.MiHigh())
				}
			}
		}
	}
	if s.full() {
		return s.samples
	}

	if doTL && left && up {
		if mi := c.Grid.At(miRow-1, miCol-1); mi != nil {
			s.record(mi, 0, -1, 0, -1)
		}
	}
	if s.full() {
		return s.samples
	}

	if doTR && c.Coded != nil && c.Coded.HasTopRight(miRow, miCol, w) &&
		c.Tile.Inside(miRow, miCol, -1, w) {
		if mi := c.Grid.At(miRow-1, miCol+w); mi != nil {
			s.record(mi, 0, -1, w, 1)
		}
	}
	return s.samples
}

// SelectSamples drops the samples whose vector differs from m by more than
// a threshold set by the block size, moving valid samples from the back
// into the holes. It returns the number of leading samples to use, which
// is 1 when none pass.
func SelectSamples(m mv.MV, samples []Sample, bs block.Size) int {
	thresh := min(max(bs.Wide(), bs.High()), 112)
	thresh = max(thresh, 16)

	n := len(samples)
	valid := make([]bool, n)
	ret := 0
	for i, s := range samples {
		d := abs(s.InRef.X-s.Pt.X-int(m.Col)) + abs(s.InRef.Y-s.Pt.Y-int(m.Row))
		if d <= thresh {
			valid[i] = true
			ret++
		}
	}
	if ret == 0 {
		return min(1, n)
	}

	i, j := 0, n-1
	for k := 0; k < n-ret; k++ {
		for valid[i] {
			i++
		}
		for !valid[j] {
			j--
		}
		if i > j {
			break
		}
		samples[i] = samples[j]
		valid[i] = true
		i++
		j--
	}
	return ret
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
