// Package mvref derives AV1 reference motion vector candidates in pure Go.
//
// For every inter block a decoder needs a ranked list of predicted motion
// vectors taken from already decoded neighbours, from the projected motion
// of reference frames and from the global motion model. This package
// reproduces that derivation bit for bit:
//
//   - Spatial neighbour scans of the rows above and columns left of a block
//   - Temporal motion field projection from the compact motion stores of
//     reference frames, with ranked and labeled source schedules
//   - Weight ranking, compound and single reference completion
//   - Reference MV bank fill from recently decoded blocks
//   - Mode context codes for entropy decoding
//   - Warp sample collection for local warped motion
//   - Skip mode reference selection
//
// Frames are decoded through a [Decoder]. BeginFrame sets up the per-frame
// state and projects the temporal motion field; each tile then gets its
// own [TileDecoder], and tiles may run in parallel with RunTiles:
//
//	dec, err := mvref.NewDecoder(mvref.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	if err := dec.BeginFrame(hdr); err != nil {
//		return err
//	}
//	td, err := dec.NewTile(mvref.Tile{MiRowEnd: dec.MiRows(), MiColEnd: dec.MiCols()})
//	if err != nil {
//		return err
//	}
//	td.BeginSuperblock(0, 0)
//	cands, err := td.FindMVRefs(mvref.Block{Size: mvref.Size16x16}, mvref.Single(mvref.Last))
//	...
//	td.Commit(mvref.Block{Size: mvref.Size16x16}, mi)
//	ref := dec.EndFrame()
//
// The returned reference record carries the frame's compact motion store
// and is passed in the Refs of later frame headers.
package mvref
