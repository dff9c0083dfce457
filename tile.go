package mvref

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/motionfield"
	"github.com/deepteams/mvref/internal/refbank"
	"github.com/deepteams/mvref/internal/refmv"
	"github.com/deepteams/mvref/internal/warp"
)

// TileDecoder derives candidates for the blocks of one tile. Blocks must be
// committed in decode order. A TileDecoder is used by one goroutine at a
// time; different tiles of a frame may run concurrently.
type TileDecoder struct {
	d     *Decoder
	ctx   refmv.Context
	warp  warp.Collector
	left  *refbank.Set
	above *refbank.Columns
}

// NewTile returns a decoder for tile t of the current frame.
func (d *Decoder) NewTile(t Tile) (*TileDecoder, error) {
	if !d.active {
		return nil, ErrNoFrame
	}
	s := d.state
	if t.MiRowStart < 0 || t.MiColStart < 0 || t.MiRowStart >= t.MiRowEnd || t.MiColStart >= t.MiColEnd ||
		t.MiRowEnd > s.MiRows || t.MiColEnd > s.MiCols {
		return nil, fmt.Errorf("%w: tile rows [%d, %d) cols [%d, %d) outside %dx%d units",
			ErrInvalidBlock, t.MiRowStart, t.MiRowEnd, t.MiColStart, t.MiColEnd, s.MiRows, s.MiCols)
	}

	sbMi := d.cfg.superblockMi()
	coded := block.NewCodedMap(sbMi)
	td := &TileDecoder{d: d, left: refbank.NewSet(d.cfg.BankSize)}
	if d.cfg.AboveBanks {
		td.above = refbank.NewColumns(t.MiColEnd, sbMi, d.cfg.BankSize)
	}
	td.ctx = refmv.Context{
		Frame:         s,
		Grid:          d.grid,
		Tile:          t,
		Coded:         coded,
		Left:          td.left,
		Above:         td.above,
		MaxDRLBits:    d.cfg.MaxDRLBits,
		CheckCodedMap: d.cfg.CheckCodedMap,
		Log: d.log.With().
			Int("tile_row", t.MiRowStart).
			Int("tile_col", t.MiColStart).
			Logger(),
	}
	if d.temp {
		td.ctx.Field = d.field
	}
	td.warp = warp.Collector{
		Grid:     d.grid,
		Tile:     t,
		Coded:    coded,
		MiRows:   s.MiRows,
		MiCols:   s.MiCols,
		Compound: d.cfg.CompoundWarpSamples,
	}
	return td, nil
}

// Tile returns the bounds of the tile.
func (td *TileDecoder) Tile() Tile { return td.ctx.Tile }

// BeginSuperblock starts the superblock at (miRow, miCol). The left bank
// is emptied at the start of each superblock row of the tile.
func (td *TileDecoder) BeginSuperblock(miRow, miCol int) {
	td.ctx.Coded.Reset()
	if miCol <= td.ctx.Tile.MiColStart {
		td.left.Reset()
	}
}

func (td *TileDecoder) check(b Block) error {
	if !td.d.active || td.ctx.Frame != td.d.state {
		return ErrNoFrame
	}
	if !b.Size.Valid() {
		return fmt.Errorf("%w: unknown size %d", ErrInvalidBlock, b.Size)
	}
	if !td.ctx.Tile.Contains(b.MiRow, b.MiCol) {
		return fmt.Errorf("%w: %v outside tile", ErrInvalidBlock, b)
	}
	return nil
}

// FindMVRefs returns the reference stack, mode context and predictor list
// of block b for reference pair ref.
func (td *TileDecoder) FindMVRefs(b Block, ref RefPair) (Result, error) {
	if err := td.check(b); err != nil {
		return Result{}, err
	}
	return td.ctx.Find(b, ref)
}

// FindWarpSamples returns the warp samples of block b for reference ref,
// filtered against the block's vector m.
func (td *TileDecoder) FindWarpSamples(b Block, ref RefFrame, m MV) ([]Sample, error) {
	if err := td.check(b); err != nil {
		return nil, err
	}
	if !ref.IsInter() {
		return nil, fmt.Errorf("%w: warp samples for %v", ErrInvalidBlock, ref)
	}
	samples := td.warp.FindSamples(b.MiRow, b.MiCol, b.Size, ref)
	n := warp.SelectSamples(m, samples, b.Size)
	return samples[:n], nil
}

// Commit records the decoded block b with its final modes and vectors: it
// becomes a neighbour of later blocks, enters the reference banks and is
// written to the frame's compact motion store.
func (td *TileDecoder) Commit(b Block, mi *ModeInfo) error {
	if err := td.check(b); err != nil {
		return err
	}
	if mi.Size != b.Size {
		return fmt.Errorf("%w: record size %v for block %v", ErrInvalidBlock, mi.Size, b)
	}
	if err := td.ctx.Frame.CheckPair(mi.Ref); err != nil {
		return err
	}
	td.ctx.Grid.Place(b.MiRow, b.MiCol, mi)
	td.ctx.Coded.Mark(b.MiRow, b.MiCol, b.Size)
	td.left.Update(mi)
	if td.above != nil {
		td.above.For(b.MiCol).Update(mi)
	}
	motionfield.CopyBlock(td.ctx.Frame, mi, b.MiRow, b.MiCol)
	return nil
}

// RunTiles decodes the given tiles of the current frame concurrently,
// calling fn with a fresh TileDecoder for each. The first error cancels
// ctx for the remaining tiles and is returned.
func (d *Decoder) RunTiles(ctx context.Context, tiles []Tile, fn func(context.Context, *TileDecoder) error) error {
	tds := make([]*TileDecoder, len(tiles))
	for i, t := range tiles {
		td, err := d.NewTile(t)
		if err != nil {
			return err
		}
		tds[i] = td
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, td := range tds {
		td := td
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, td)
		})
	}
	return g.Wait()
}

// UniformTiles splits a frame of miRows x miCols units into rows x cols
// tiles aligned to superblocks of sbMi units.
func UniformTiles(miRows, miCols, sbMi, rows, cols int) []Tile {
	sbRows := (miRows + sbMi - 1) / sbMi
	sbCols := (miCols + sbMi - 1) / sbMi
	rows = min(max(rows, 1), sbRows)
	cols = min(max(cols, 1), sbCols)
	edge := func(i, n, sbs, limit int) int {
		return min((i*sbs+n-1)/n*sbMi, limit)
	}
	tiles := make([]Tile, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			tiles = append(tiles, Tile{
				MiRowStart: edge(r, rows, sbRows, miRows),
				MiRowEnd:   edge(r+1, rows, sbRows, miRows),
				MiColStart: edge(c, cols, sbCols, miCols),
				MiColEnd:   edge(c+1, cols, sbCols, miCols),
			})
		}
	}
	return tiles
}
