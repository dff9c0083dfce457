// Package pool provides bucketed sync.Pool slabs for the per-frame grids
// (temporal motion fields and compact motion stores). Slabs are organized
// by size class, counted in elements, to minimize waste.
package pool

import "sync"

// Size classes for bucketed pools, in elements.
const (
	Size256  = 256
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
)

const numBuckets = 7

// bucketIndex returns the pool index for a given length.
func bucketIndex(n int) int {
	switch {
	case n <= Size256:
		return 0
	case n <= Size1K:
		return 1
	case n <= Size4K:
		return 2
	case n <= Size16K:
		return 3
	case n <= Size64K:
		return 4
	case n <= Size256K:
		return 5
	default:
		return 6
	}
}

var sizes = [numBuckets]int{Size256, Size1K, Size4K, Size16K, Size64K, Size256K, Size1M}

// Slabs pools []T slices by size class. The zero value is ready to use
// and safe for concurrent use.
type Slabs[T any] struct {
	pools [numBuckets]sync.Pool
}

// Get returns a slice of length n. Its contents are unspecified; callers
// must initialize every element they read. The caller should call Put when
// done.
func (s *Slabs[T]) Get(n int) []T {
	idx := bucketIndex(n)
	if v := s.pools[idx].Get(); v != nil {
		bp := v.(*[]T)
		if cap(*bp) >= n {
			return (*bp)[:n]
		}
	}
	return make([]T, n, max(n, sizes[idx]))
}

// Put returns a slice to the pool. Slices smaller than Size256 are not
// pooled.
func (s *Slabs[T]) Put(b []T) {
	c := cap(b)
	if c < Size256 {
		return
	}
	idx := bucketIndex(c)
	if c < sizes[idx] && idx > 0 {
		// A slab short of its class serves the class below.
		idx--
	}
	b = b[:c]
	s.pools[idx].Put(&b)
}
