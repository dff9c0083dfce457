package mvref

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
	"github.com/deepteams/mvref/internal/motionfield"
)

// FrameHeader carries the frame level inputs of motion vector derivation.
type FrameHeader struct {
	Width, Height int
	Type          FrameType
	OrderHint     int

	// ReferenceSelect allows compound references in the frame.
	ReferenceSelect bool
	// AllowRefFrameMVs enables temporal candidates for this frame. It has
	// no effect when the sequence disables them.
	AllowRefFrameMVs bool
	Precision        Precision

	// Refs holds the frame's seven references by inter slot (LAST is 0).
	// Unused slots are nil.
	Refs [block.InterRefs]*Frame

	// Global holds the global motion model of each reference, indexed by
	// RefFrame. The zero value is the identity model.
	Global [block.RefFrames]GlobalMotion
}

// Decoder holds the per-frame state shared by the tiles of a frame. A
// Decoder decodes one frame at a time; its tiles may run concurrently.
type Decoder struct {
	cfg    Config
	policy motionfield.Policy
	proj   motionfield.Projector
	log    zerolog.Logger

	state   *frame.State
	field   *motionfield.Field
	grid    *block.Grid
	active  bool
	temp    bool
	sources int
	frames  int
}

// NewDecoder returns a decoder for a sequence configured by cfg.
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pol, _ := motionfield.PolicyByName(cfg.ProjectionPolicy)
	return &Decoder{
		cfg:    cfg,
		policy: pol,
		proj:   motionfield.Projector{Window: motionfield.DefaultWindow},
		log:    currentLogger(),
	}, nil
}

// Config returns the decoder's configuration.
func (d *Decoder) Config() Config { return d.cfg }

// MiRows returns the height of the current frame in 4x4 units.
func (d *Decoder) MiRows() int {
	if d.state == nil {
		return 0
	}
	return d.state.MiRows
}

// MiCols returns the width of the current frame in 4x4 units.
func (d *Decoder) MiCols() int {
	if d.state == nil {
		return 0
	}
	return d.state.MiCols
}

// BeginFrame sets up the per-frame state for hdr: the frame's reference
// order hints, the temporal sign bias, the reference sides and, when
// temporal candidates are on, the projected motion field. A frame still in
// progress is abandoned.
func (d *Decoder) BeginFrame(hdr FrameHeader) error {
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return fmt.Errorf("mvref: invalid frame size %dx%d", hdr.Width, hdr.Height)
	}
	if hdr.Precision > PrecisionEighth {
		return fmt.Errorf("mvref: invalid precision %d", hdr.Precision)
	}
	if hdr.Type.IsIntraOnly() {
		for _, r := range hdr.Refs {
			if r != nil {
				return fmt.Errorf("%w: %v frame with references", ErrCorruptFrame, hdr.Type)
			}
		}
	}
	if d.active {
		motionfield.ReleaseStore(d.state.Cur)
	}

	miRows, miCols := frame.MiDims(hdr.Width, hdr.Height)
	s := &frame.State{
		OrderHints:       frame.OrderHintInfo{Enabled: d.cfg.EnableOrderHint, Bits: d.cfg.OrderHintBits},
		Width:            hdr.Width,
		Height:           hdr.Height,
		MiRows:           miRows,
		MiCols:           miCols,
		Type:             hdr.Type,
		ReferenceSelect:  hdr.ReferenceSelect,
		AllowRefFrameMVs: d.cfg.AllowRefFrameMVs && hdr.AllowRefFrameMVs && !hdr.Type.IsIntraOnly(),
		Precision:        hdr.Precision,
		Refs:             hdr.Refs,
		Global:           hdr.Global,
	}
	orderHint := hdr.OrderHint
	if !s.OrderHints.Enabled {
		orderHint = 0
	}
	s.Cur = frame.NewBuffer(orderHint, hdr.Type, miRows, miCols)
	motionfield.AllocStore(s.Cur)
	s.SetupBufRefs()
	s.SetupSignBias()

	if d.field == nil || d.field.Rows() != (miRows+1)>>1 || d.field.Cols() != (miCols+1)>>1 {
		if d.field != nil {
			d.field.Release()
		}
		d.field = motionfield.NewField(miRows, miCols)
	}
	if d.grid == nil || d.grid.MiRows() != miRows || d.grid.MiCols() != miCols {
		d.grid = block.NewGrid(miRows, miCols)
	} else {
		d.grid.Reset()
	}

	d.sources = 0
	if s.AllowRefFrameMVs {
		d.sources = motionfield.Setup(s, d.field, &d.proj, d.policy)
	} else {
		d.field.Reset()
		s.SetupSides()
	}
	d.state = s
	d.temp = s.AllowRefFrameMVs
	d.active = true

	d.log.Debug().
		Int("frame", d.frames).
		Stringer("type", hdr.Type).
		Int("order_hint", orderHint).
		Int("mi_rows", miRows).
		Int("mi_cols", miCols).
		Bool("temporal", d.temp).
		Int("sources", d.sources).
		Msg("begin frame")
	return nil
}

// ProjectedSources returns how many reference stores were projected into
// the current frame's motion field.
func (d *Decoder) ProjectedSources() int { return d.sources }

// TemporalUnits returns how many units of the current motion field hold a
// projected vector.
func (d *Decoder) TemporalUnits() int {
	if !d.active || !d.temp {
		return 0
	}
	return d.field.Count()
}

// SkipMode returns the skip mode reference pair of the current frame. ok
// is false when skip mode is not allowed.
func (d *Decoder) SkipMode() (m SkipMode, ok bool, err error) {
	if !d.active {
		return SkipMode{}, false, ErrNoFrame
	}
	m, ok = d.state.SkipModeRefs()
	return m, ok, nil
}

// EndFrame finishes the current frame and returns its reference record,
// holding the compact motion store written by Commit. Release it with
// ReleaseFrame once no later frame refers to it.
func (d *Decoder) EndFrame() (*Frame, error) {
	if !d.active {
		return nil, ErrNoFrame
	}
	cur := d.state.Cur
	d.active = false
	d.frames++
	d.log.Debug().Int("frame", d.frames-1).Msg("end frame")
	return cur, nil
}

// Close releases the decoder's motion field. The decoder must not be used
// afterwards.
func (d *Decoder) Close() {
	if d.active {
		motionfield.ReleaseStore(d.state.Cur)
		d.active = false
	}
	if d.field != nil {
		d.field.Release()
		d.field = nil
	}
	d.grid = nil
}

// ReleaseFrame returns the compact motion store of f to the pool.
func ReleaseFrame(f *Frame) {
	if f != nil {
		motionfield.ReleaseStore(f)
	}
}

// RemapReferences derives the seven references of a frame with order hint
// orderHint from the LAST and GOLDEN indices into refMap, as done for
// frames that signal only those two. It fails when order hints are off or
// LAST or GOLDEN come after the current frame.
func (d *Decoder) RemapReferences(orderHint int, refMap [frame.RefMapSize]*Frame, lastIdx, goldIdx int) ([block.InterRefs]*Frame, error) {
	var refs [block.InterRefs]*Frame
	oh := frame.OrderHintInfo{Enabled: d.cfg.EnableOrderHint, Bits: d.cfg.OrderHintBits}
	idx, err := frame.SetFrameRefs(oh, orderHint, refMap, lastIdx, goldIdx)
	if err != nil {
		return refs, fmt.Errorf("mvref: remap references: %w", err)
	}
	for i, j := range idx {
		refs[i] = refMap[j]
	}
	return refs, nil
}
