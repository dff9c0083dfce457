package block

// Tile bounds a tile in mi units. End positions are exclusive.
type Tile struct {
	MiRowStart, MiRowEnd int
	MiColStart, MiColEnd int
}

// Inside reports whether the unit at offset (dr, dc) from (miRow, miCol)
// lies in the tile.
func (t Tile) Inside(miRow, miCol, dr, dc int) bool {
	r, c := miRow+dr, miCol+dc
	return r >= t.MiRowStart && c >= t.MiColStart && r < t.MiRowEnd && c < t.MiColEnd
}

// UpAvailable reports whether a row above miRow belongs to the tile.
func (t Tile) UpAvailable(miRow int) bool { return miRow > t.MiRowStart }

// LeftAvailable reports whether a column left of miCol belongs to the tile.
func (t Tile) LeftAvailable(miCol int) bool { return miCol > t.MiColStart }

// ValidRowOffset clamps a row offset from miRow to the tile.
func (t Tile) ValidRowOffset(miRow, off int) int {
	return min(max(off, t.MiRowStart-miRow), t.MiRowEnd-miRow-1)
}

// ValidColOffset clamps a column offset from miCol to the tile.
func (t Tile) ValidColOffset(miCol, off int) int {
	return min(max(off, t.MiColStart-miCol), t.MiColEnd-miCol-1)
}

// Contains reports whether (miRow, miCol) lies in the tile.
func (t Tile) Contains(miRow, miCol int) bool { return t.Inside(miRow, miCol, 0, 0) }

// MaxSuperblockMi is the edge of the largest superblock in mi units.
const MaxSuperblockMi = 32

// CodedMap records which units of the current superblock have been
// decoded. Positions are relative to the superblock origin.
type CodedMap struct {
	sbMi  int
	coded [MaxSuperblockMi * MaxSuperblockMi]bool
}

// NewCodedMap returns a map for superblocks of sbMi x sbMi units.
func NewCodedMap(sbMi int) *CodedMap { return &CodedMap{sbMi: sbMi} }

// SuperblockMi returns the superblock edge in mi units.
func (m *CodedMap) SuperblockMi() int { return m.sbMi }

// Reset clears the map at the start of a superblock.
func (m *CodedMap) Reset() { m.coded = [MaxSuperblockMi * MaxSuperblockMi]bool{} }

// Mark records the block of size s at frame position (miRow, miCol) as
// decoded. Units outside the current superblock are ignored.
func (m *CodedMap) Mark(miRow, miCol int, s Size) {
	mask := m.sbMi - 1
	r0, c0 := miRow&mask, miCol&mask
	r1 := min(r0+s.MiHigh(), m.sbMi)
	c1 := min(c0+s.MiWide(), m.sbMi)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			m.coded[r*MaxSuperblockMi+c] = true
		}
	}
}

// Coded reports whether the unit at superblock-relative (row, col) has
// been decoded. Positions outside the superblock report false.
func (m *CodedMap) Coded(row, col int) bool {
	if uint(row) >= uint(m.sbMi) || uint(col) >= uint(m.sbMi) {
		return false
	}
	return m.coded[row*MaxSuperblockMi+col]
}

// HasTopRight reports whether the unit above and right of a block of wide
// mi columns at (miRow, miCol) has been decoded.
func (m *CodedMap) HasTopRight(miRow, miCol, wide int) bool {
	if wide > Mi64x64 {
		return false
	}
	mask := m.sbMi - 1
	row := (miRow & mask) - 1
	col := (miCol & mask) + wide
	switch {
	case row < 0:
		// Superblock row above is fully decoded; the tile check decides.
		return true
	case col >= m.sbMi:
		return false
	default:
		return m.coded[row*MaxSuperblockMi+col]
	}
}
