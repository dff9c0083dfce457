package frame

import (
	"errors"
	"fmt"
	"slices"

	"github.com/deepteams/mvref/internal/block"
)

// RefMapSize is the number of frame buffers a decoder keeps for reference.
const RefMapSize = 8

var errNoOrderHints = errors.New("frame: reference remapping requires order hints")

type refInfo struct {
	mapIdx  int
	sortIdx int
}

// SetFrameRefs derives the seven inter slots of a frame from the explicit
// LAST and GOLDEN map indices and the order hints of the buffers in
// refMap. The result maps each inter slot to a refMap index. LAST and
// GOLDEN must both precede the current frame.
func SetFrameRefs(oh OrderHintInfo, curOrderHint int, refMap [RefMapSize]*Buffer, lstMapIdx, gldMapIdx int) ([block.InterRefs]int, error) {
	var remapped [block.InterRefs]int
	if !oh.Enabled || oh.Bits < 1 {
		return remapped, errNoOrderHints
	}
	curSortIdx := 1 << (oh.Bits - 1)
	lstSortIdx, gldSortIdx := -1, -1

	var infos [RefMapSize]refInfo
	for i, b := range refMap {
		infos[i] = refInfo{mapIdx: i, sortIdx: -1}
		if b == nil || b.OrderHint == NoOrderHint {
			continue
		}
		infos[i].sortIdx = curSortIdx + oh.RelativeDist(b.OrderHint, curOrderHint)
		if i == lstMapIdx {
			lstSortIdx = infos[i].sortIdx
		}
		if i == gldMapIdx {
			gldSortIdx = infos[i].sortIdx
		}
	}
	if lstSortIdx == -1 || lstSortIdx >= curSortIdx {
		return remapped, fmt.Errorf("%w: inter frame requests a look-ahead frame as LAST", ErrCorruptFrame)
	}
	if gldSortIdx == -1 || gldSortIdx >= curSortIdx {
		return remapped, fmt.Errorf("%w: inter frame requests a look-ahead frame as GOLDEN", ErrCorruptFrame)
	}

	slices.SortFunc(infos[:], func(a, b refInfo) int {
		if a.sortIdx != b.sortIdx {
			return a.sortIdx - b.sortIdx
		}
		return a.mapIdx - b.mapIdx
	})

	fwdStart, fwdEnd := 0, RefMapSize-1
	for i := range infos {
		if infos[i].sortIdx == -1 {
			fwdStart++
			continue
		}
		if infos[i].sortIdx >= curSortIdx {
			fwdEnd = i - 1
			break
		}
	}
	bwdStart, bwdEnd := fwdEnd+1, RefMapSize-1

	var assigned [block.InterRefs]bool
	set := func(r block.RefFrame, info refInfo) {
		remapped[r.Index()] = info.mapIdx
		assigned[r.Index()] = true
	}

	// Backward references: furthest is ALTREF, nearest BWDREF, next ALTREF2.
	if bwdStart <= bwdEnd {
		set(block.Altref, infos[bwdEnd])
		bwdEnd--
	}
	if bwdStart <= bwdEnd {
		set(block.Bwdref, infos[bwdStart])
		bwdStart++
	}
	if bwdStart <= bwdEnd {
		set(block.Altref2, infos[bwdStart])
	}

	for i := fwdStart; i <= fwdEnd; i++ {
		if infos[i].mapIdx == lstMapIdx {
			set(block.Last, infos[i])
		}
		if infos[i].mapIdx == gldMapIdx {
			set(block.Golden, infos[i])
		}
	}

	// Remaining slots take forward references in anti-chronological order.
	order := [...]block.RefFrame{block.Last2, block.Last3, block.Bwdref, block.Altref2, block.Altref}
	k := 0
	for ; k < len(order); k++ {
		r := order[k]
		if assigned[r.Index()] {
			continue
		}
		for fwdStart <= fwdEnd && (infos[fwdEnd].mapIdx == lstMapIdx || infos[fwdEnd].mapIdx == gldMapIdx) {
			fwdEnd--
		}
		if fwdStart > fwdEnd {
			break
		}
		set(r, infos[fwdEnd])
		fwdEnd--
	}
	// Anything left points at the earliest reference.
	for ; k < len(order); k++ {
		r := order[k]
		if !assigned[r.Index()] {
			set(r, infos[fwdStart])
		}
	}
	return remapped, nil
}
