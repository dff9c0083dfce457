package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/deepteams/mvref"
	"github.com/deepteams/mvref/internal/frame"
)

// Scene is a sequence of frames described in JSON. External references
// stand for frames decoded elsewhere; they have an order hint but no
// stored motion.
type Scene struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	References []ExternalRef `json:"references"`
	Frames     []SceneFrame  `json:"frames"`
}

// ExternalRef is a reference frame that is not part of the scene.
type ExternalRef struct {
	Name      string `json:"name"`
	OrderHint int    `json:"order_hint"`
}

// SceneFrame is one frame of a scene.
type SceneFrame struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	OrderHint        int    `json:"order_hint"`
	ReferenceSelect  bool   `json:"reference_select"`
	AllowRefFrameMVs bool   `json:"allow_ref_frame_mvs"`
	Precision        *int   `json:"precision"`

	// Refs maps slot names (LAST, GOLDEN, ...) to earlier frames or
	// external references.
	Refs    map[string]string      `json:"refs"`
	Global  map[string]SceneGlobal `json:"global"`
	Blocks  []SceneBlock           `json:"blocks"`
	Queries []SceneBlock           `json:"queries"`
}

// SceneGlobal is the global motion model of one reference.
type SceneGlobal struct {
	Type   string   `json:"type"`
	Params [6]int32 `json:"params"`
}

// SceneBlock is a decoded block, or a query when it appears in queries.
type SceneBlock struct {
	Row  int        `json:"row"`
	Col  int        `json:"col"`
	Size string     `json:"size"`
	Mode string     `json:"mode"`
	Refs []string   `json:"refs"`
	MVs  [][2]int16 `json:"mvs"`

	// Query reports the candidates of the block before it is committed.
	Query bool `json:"query"`
	// Warp also reports warp samples filtered against the first vector.
	Warp bool `json:"warp"`
}

func readScene(r io.Reader) (*Scene, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var s Scene
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("scene: invalid frame size %dx%d", s.Width, s.Height)
	}
	return &s, nil
}

var frameTypes = map[string]mvref.FrameType{
	"key":        mvref.KeyFrame,
	"inter":      mvref.InterFrame,
	"intra_only": mvref.IntraOnlyFrame,
	"switch":     mvref.SwitchFrame,
}

func parseFrameType(s string) (mvref.FrameType, error) {
	if s == "" {
		return mvref.InterFrame, nil
	}
	t, ok := frameTypes[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown frame type %q", s)
	}
	return t, nil
}

var refSlots = map[string]mvref.RefFrame{
	"INTRA":   mvref.Intra,
	"LAST":    mvref.Last,
	"LAST2":   mvref.Last2,
	"LAST3":   mvref.Last3,
	"GOLDEN":  mvref.Golden,
	"BWDREF":  mvref.Bwdref,
	"ALTREF2": mvref.Altref2,
	"ALTREF":  mvref.Altref,
}

func parseRef(s string) (mvref.RefFrame, error) {
	r, ok := refSlots[strings.ToUpper(s)]
	if !ok {
		return mvref.None, fmt.Errorf("unknown reference %q", s)
	}
	return r, nil
}

func parseRefPair(names []string) (mvref.RefPair, error) {
	switch len(names) {
	case 1:
		r, err := parseRef(names[0])
		if err != nil {
			return mvref.RefPair{}, err
		}
		return mvref.Single(r), nil
	case 2:
		a, err := parseRef(names[0])
		if err != nil {
			return mvref.RefPair{}, err
		}
		b, err := parseRef(names[1])
		if err != nil {
			return mvref.RefPair{}, err
		}
		return mvref.Compound(a, b), nil
	}
	return mvref.RefPair{}, fmt.Errorf("block needs 1 or 2 references, got %d", len(names))
}

var warpTypes = map[string]mvref.WarpType{
	"identity":    mvref.Identity,
	"translation": mvref.Translation,
	"rotzoom":     mvref.RotZoom,
	"affine":      mvref.Affine,
}

func parseSize(s string) (mvref.Size, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, fmt.Errorf("invalid block size %q", s)
	}
	size, ok := mvref.SizeFor(w, h)
	if !ok {
		return 0, fmt.Errorf("no block size %dx%d", w, h)
	}
	return size, nil
}

func (b SceneBlock) block() (mvref.Block, error) {
	size, err := parseSize(b.Size)
	if err != nil {
		return mvref.Block{}, err
	}
	return mvref.Block{MiRow: b.Row, MiCol: b.Col, Size: size}, nil
}

func (b SceneBlock) modeInfo() (*mvref.ModeInfo, error) {
	size, err := parseSize(b.Size)
	if err != nil {
		return nil, err
	}
	refs := b.Refs
	if len(refs) == 0 {
		refs = []string{"INTRA"}
	}
	pair, err := parseRefPair(refs)
	if err != nil {
		return nil, err
	}
	mi := &mvref.ModeInfo{Size: size, Ref: pair}
	if pair[0] == mvref.Intra {
		return mi, nil
	}
	name := b.Mode
	if name == "" {
		name = "NEWMV"
		if pair.IsCompound() {
			name = "NEW_NEWMV"
		}
	}
	mode, ok := mvref.ParseMode(strings.ToUpper(name))
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", b.Mode)
	}
	mi.Mode = mode
	for i := 0; i < len(b.MVs) && i < 2; i++ {
		mi.MV[i] = mvref.MV{Row: b.MVs[i][0], Col: b.MVs[i][1]}
	}
	return mi, nil
}

// header resolves f against the frames decoded so far.
func (f SceneFrame) header(s *Scene, decoded map[string]*mvref.Frame) (mvref.FrameHeader, error) {
	t, err := parseFrameType(f.Type)
	if err != nil {
		return mvref.FrameHeader{}, err
	}
	hdr := mvref.FrameHeader{
		Width:            s.Width,
		Height:           s.Height,
		Type:             t,
		OrderHint:        f.OrderHint,
		ReferenceSelect:  f.ReferenceSelect,
		AllowRefFrameMVs: f.AllowRefFrameMVs,
		Precision:        mvref.PrecisionEighth,
	}
	if f.Precision != nil {
		hdr.Precision = mvref.Precision(*f.Precision)
	}
	for slot, name := range f.Refs {
		r, err := parseRef(slot)
		if err != nil {
			return hdr, err
		}
		if !r.IsInter() {
			return hdr, fmt.Errorf("frame %s: %v is not an inter slot", f.Name, r)
		}
		ref, ok := decoded[name]
		if !ok {
			return hdr, fmt.Errorf("frame %s: unknown reference frame %q", f.Name, name)
		}
		hdr.Refs[r.Index()] = ref
	}
	for slot, g := range f.Global {
		r, err := parseRef(slot)
		if err != nil {
			return hdr, err
		}
		wt, ok := warpTypes[strings.ToLower(g.Type)]
		if !ok {
			return hdr, fmt.Errorf("frame %s: unknown global motion type %q", f.Name, g.Type)
		}
		hdr.Global[r] = mvref.GlobalMotion{Type: wt, Mat: g.Params}
	}
	return hdr, nil
}

// externalFrames returns records for the scene's external references.
func (s *Scene) externalFrames() map[string]*mvref.Frame {
	miRows, miCols := frame.MiDims(s.Width, s.Height)
	out := make(map[string]*mvref.Frame, len(s.References)+len(s.Frames))
	for _, r := range s.References {
		out[r.Name] = frame.NewBuffer(r.OrderHint, mvref.InterFrame, miRows, miCols)
	}
	return out
}
