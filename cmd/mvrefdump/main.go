// Command mvrefdump runs motion vector reference derivation over a scene
// described in JSON and prints the candidate stacks.
//
// Usage:
//
//	mvrefdump scan [-config file] <scene.json>   Decode the scene, print queried stacks
//	mvrefdump skip [-config file] <scene.json>   Print the skip mode pair of each frame
//	mvrefdump version                            Print the version
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deepteams/mvref"
)

const version = "0.3.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "scan":
		err = runScan(args[1:], stdin, stdout, stderr)
	case "skip":
		err = runSkip(args[1:], stdin, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "mvrefdump %s\n", version)
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "mvrefdump: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "mvrefdump: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  mvrefdump scan [-config file] <scene.json>   Decode a scene and print queried stacks
  mvrefdump skip [-config file] <scene.json>   Print the skip mode pair of each frame
  mvrefdump version                            Print the version

Use "-" as scene to read from stdin. Settings may also come from MVREF_*
environment variables, e.g. MVREF_PROJECTION_POLICY=labeled.
`)
}

type command struct {
	settings settings
	scene    *Scene
	log      zerolog.Logger
}

// setup parses the flags shared by scan and skip, loads the settings and
// the scene.
func setup(name string, args []string, stdin io.Reader, stderr io.Writer) (*command, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config file (json, yaml or toml)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		return nil, fmt.Errorf("%s: missing scene file\nUsage: mvrefdump %s [-config file] <scene.json>", name, name)
	}

	st, err := loadSettings(*cfgPath)
	if err != nil {
		return nil, err
	}
	in := stdin
	if p := fs.Arg(0); p != "-" {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	sc, err := readScene(in)
	if err != nil {
		return nil, err
	}
	log := newLogger(stderr, st.LogLevel)
	mvref.SetLogger(log)
	return &command{settings: st, scene: sc, log: log}, nil
}

func runSkip(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c, err := setup("skip", args, stdin, stderr)
	if err != nil {
		return err
	}
	d, err := mvref.NewDecoder(c.settings.Decoder)
	if err != nil {
		return err
	}
	defer d.Close()

	decoded := c.scene.externalFrames()
	for i, f := range c.scene.Frames {
		hdr, err := f.header(c.scene, decoded)
		if err != nil {
			return err
		}
		if err := d.BeginFrame(hdr); err != nil {
			return fmt.Errorf("frame %s: %w", frameName(f, i), err)
		}
		m, ok, err := d.SkipMode()
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(stdout, "frame %s: skip mode %v\n", frameName(f, i), m.Refs())
		} else {
			fmt.Fprintf(stdout, "frame %s: skip mode off\n", frameName(f, i))
		}
		ref, err := d.EndFrame()
		if err != nil {
			return err
		}
		decoded[frameName(f, i)] = ref
	}
	return nil
}

func runScan(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c, err := setup("scan", args, stdin, stderr)
	if err != nil {
		return err
	}
	d, err := mvref.NewDecoder(c.settings.Decoder)
	if err != nil {
		return err
	}
	defer d.Close()

	decoded := c.scene.externalFrames()
	defer func() {
		for _, f := range decoded {
			mvref.ReleaseFrame(f)
		}
	}()
	for i, f := range c.scene.Frames {
		name := frameName(f, i)
		ref, err := c.scanFrame(d, f, name, decoded, stdout)
		if err != nil {
			return fmt.Errorf("frame %s: %w", name, err)
		}
		decoded[name] = ref
	}
	return nil
}

func frameName(f SceneFrame, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("#%d", i)
}

// tileWork is the part of a frame decoded by one tile.
type tileWork struct {
	blocks  []SceneBlock
	queries []SceneBlock
	out     bytes.Buffer
}

func (c *command) scanFrame(d *mvref.Decoder, f SceneFrame, name string, decoded map[string]*mvref.Frame, stdout io.Writer) (*mvref.Frame, error) {
	hdr, err := f.header(c.scene, decoded)
	if err != nil {
		return nil, err
	}
	if err := d.BeginFrame(hdr); err != nil {
		return nil, err
	}
	c.log.Debug().Str("frame", name).Int("blocks", len(f.Blocks)).Int("queries", len(f.Queries)).Msg("scan frame")
	fmt.Fprintf(stdout, "frame %s: %v, order hint %d, %d projected sources, %d temporal units\n",
		name, hdr.Type, hdr.OrderHint, d.ProjectedSources(), d.TemporalUnits())

	sbMi := c.settings.Decoder.SuperblockSize / 4
	tiles := mvref.UniformTiles(d.MiRows(), d.MiCols(), sbMi, c.settings.Tiles[0], c.settings.Tiles[1])
	work := make([]*tileWork, len(tiles))
	index := make(map[mvref.Tile]int, len(tiles))
	for i, t := range tiles {
		work[i] = &tileWork{}
		index[t] = i
	}
	owner := func(b SceneBlock) (*tileWork, error) {
		for i, t := range tiles {
			if t.Contains(b.Row, b.Col) {
				return work[i], nil
			}
		}
		return nil, fmt.Errorf("%w: block at (%d, %d) outside the frame", mvref.ErrInvalidBlock, b.Row, b.Col)
	}
	for _, b := range f.Blocks {
		w, err := owner(b)
		if err != nil {
			return nil, err
		}
		w.blocks = append(w.blocks, b)
	}
	for _, q := range f.Queries {
		w, err := owner(q)
		if err != nil {
			return nil, err
		}
		w.queries = append(w.queries, q)
	}

	err = d.RunTiles(context.Background(), tiles, func(ctx context.Context, td *mvref.TileDecoder) error {
		w := work[index[td.Tile()]]
		return decodeTile(ctx, td, sbMi, w)
	})
	if err != nil {
		return nil, err
	}
	for _, w := range work {
		if _, err := w.out.WriteTo(stdout); err != nil {
			return nil, err
		}
	}
	return d.EndFrame()
}

func decodeTile(ctx context.Context, td *mvref.TileDecoder, sbMi int, w *tileWork) error {
	sbRow, sbCol := -1, -1
	for _, sb := range w.blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := sb.block()
		if err != nil {
			return err
		}
		if r, c := b.MiRow/sbMi, b.MiCol/sbMi; r != sbRow || c != sbCol {
			td.BeginSuperblock(r*sbMi, c*sbMi)
			sbRow, sbCol = r, c
		}
		mi, err := sb.modeInfo()
		if err != nil {
			return err
		}
		if sb.Query {
			if err := query(td, b, mi.Ref, sb, &w.out); err != nil {
				return err
			}
		}
		if err := td.Commit(b, mi); err != nil {
			return err
		}
	}
	for _, q := range w.queries {
		b, err := q.block()
		if err != nil {
			return err
		}
		ref, err := parseRefPair(q.Refs)
		if err != nil {
			return err
		}
		if err := query(td, b, ref, q, &w.out); err != nil {
			return err
		}
	}
	return nil
}

func query(td *mvref.TileDecoder, b mvref.Block, ref mvref.RefPair, sb SceneBlock, out io.Writer) error {
	if ref[0] == mvref.Intra {
		fmt.Fprintf(out, "query %v %v: intra\n", b, ref)
		return nil
	}
	res, err := td.FindMVRefs(b, ref)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "query %v %v: context %#x nearest %d ranked %d\n",
		b, ref, res.Context, res.NearestCount, res.RankedCount)
	for i, e := range res.Stack {
		if ref.IsCompound() {
			fmt.Fprintf(out, "  %d: %s %s weight %d\n", i, fmtMV(e.This), fmtMV(e.Comp), e.Weight)
		} else {
			fmt.Fprintf(out, "  %d: %s weight %d\n", i, fmtMV(e.This), e.Weight)
		}
	}
	if !ref.IsCompound() {
		fmt.Fprintf(out, "  list: %s %s\n", fmtMV(res.List[0]), fmtMV(res.List[1]))
	}

	if !sb.Warp {
		return nil
	}
	var m mvref.MV
	if len(sb.MVs) > 0 {
		m = mvref.MV{Row: sb.MVs[0][0], Col: sb.MVs[0][1]}
	}
	samples, err := td.FindWarpSamples(b, ref[0], m)
	if err != nil {
		return err
	}
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprintf("(%d,%d)->(%d,%d)", s.Pt.X, s.Pt.Y, s.InRef.X, s.InRef.Y)
	}
	fmt.Fprintf(out, "  warp: %s\n", strings.Join(parts, " "))
	return nil
}

func fmtMV(m mvref.MV) string { return fmt.Sprintf("(%d,%d)", m.Row, m.Col) }
