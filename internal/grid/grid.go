// Package grid provides a bounded two-dimensional grid over a flat slice.
// Every access is range checked at the boundary: reads outside the grid
// return the zero value and writes outside it are dropped.
package grid

// Grid is a rows x cols array of T stored row-major.
type Grid[T any] struct {
	rows, cols int
	cells      []T
}

// New allocates a zeroed rows x cols grid.
func New[T any](rows, cols int) *Grid[T] {
	return &Grid[T]{rows: rows, cols: cols, cells: make([]T, rows*cols)}
}

// Wrap builds a grid over an existing backing slice, which must hold at
// least rows*cols cells. The slice is not cleared.
func Wrap[T any](rows, cols int, backing []T) *Grid[T] {
	return &Grid[T]{rows: rows, cols: cols, cells: backing[:rows*cols]}
}

// Rows returns the number of rows.
func (g *Grid[T]) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid[T]) Cols() int { return g.cols }

// Contains reports whether (row, col) lies inside the grid.
func (g *Grid[T]) Contains(row, col int) bool {
	return uint(row) < uint(g.rows) && uint(col) < uint(g.cols)
}

// At returns the cell at (row, col), or the zero value outside the grid.
func (g *Grid[T]) At(row, col int) T {
	if !g.Contains(row, col) {
		var zero T
		return zero
	}
	return g.cells[row*g.cols+col]
}

// Ptr returns a pointer to the cell at (row, col), or nil outside the grid.
func (g *Grid[T]) Ptr(row, col int) *T {
	if !g.Contains(row, col) {
		return nil
	}
	return &g.cells[row*g.cols+col]
}

// Set stores v at (row, col). It reports false, and stores nothing, when
// the position is outside the grid.
func (g *Grid[T]) Set(row, col int, v T) bool {
	if !g.Contains(row, col) {
		return false
	}
	g.cells[row*g.cols+col] = v
	return true
}

// FillRect stores v in every cell of the h x w rectangle at (row, col),
// clipped to the grid.
func (g *Grid[T]) FillRect(row, col, h, w int, v T) {
	r0, r1 := max(row, 0), min(row+h, g.rows)
	c0, c1 := max(col, 0), min(col+w, g.cols)
	for r := r0; r < r1; r++ {
		line := g.cells[r*g.cols:]
		for c := c0; c < c1; c++ {
			line[c] = v
		}
	}
}

// Fill stores v in every cell.
func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// Cells exposes the backing slice in row-major order.
func (g *Grid[T]) Cells() []T { return g.cells }
