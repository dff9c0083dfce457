package mvref

import (
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/deepteams/mvref/internal/block"
	"github.com/deepteams/mvref/internal/frame"
	"github.com/deepteams/mvref/internal/mv"
	"github.com/deepteams/mvref/internal/refmv"
	"github.com/deepteams/mvref/internal/warp"
)

var (
	// ErrInvalidConfig is returned for configuration values out of range.
	ErrInvalidConfig = errors.New("mvref: invalid config")

	// ErrInvalidBlock is returned for a block that does not fit the frame
	// or tile, or that is committed with an unknown size or reference.
	ErrInvalidBlock = errors.New("mvref: invalid block")

	// ErrCorruptFrame is returned when a block or frame header names a
	// reference frame that is not available.
	ErrCorruptFrame = frame.ErrCorruptFrame

	// ErrNoFrame is returned by tile operations outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("mvref: no frame in progress")
)

// Motion vectors and candidates.
type (
	MV        = mv.MV
	Candidate = mv.Candidate
	Precision = mv.Precision
)

// Sub-pel precisions.
const (
	PrecisionInteger = mv.PrecisionInteger
	PrecisionHalf    = mv.PrecisionHalf
	PrecisionQuarter = mv.PrecisionQuarter
	PrecisionEighth  = mv.PrecisionEighth
)

// Blocks, references and modes.
type (
	Size     = block.Size
	Mode     = block.Mode
	RefFrame = block.RefFrame
	RefPair  = block.RefPair
	ModeInfo = block.ModeInfo
	Tile     = block.Tile
	Block    = refmv.Block
)

// Block sizes used in examples and tests. Every size is available from
// SizeFor.
const (
	Size4x4     = block.Size4x4
	Size8x8     = block.Size8x8
	Size16x16   = block.Size16x16
	Size32x32   = block.Size32x32
	Size64x64   = block.Size64x64
	Size128x128 = block.Size128x128
)

// Reference frame slots.
const (
	None    = block.None
	Intra   = block.Intra
	Last    = block.Last
	Last2   = block.Last2
	Last3   = block.Last3
	Golden  = block.Golden
	Bwdref  = block.Bwdref
	Altref2 = block.Altref2
	Altref  = block.Altref
)

// Single returns the pair of a one-reference block.
func Single(r RefFrame) RefPair { return block.Single(r) }

// Compound returns the pair of a two-reference block.
func Compound(a, b RefFrame) RefPair { return block.Compound(a, b) }

// SizeFor returns the block size with the given pixel dimensions.
func SizeFor(w, h int) (Size, bool) { return block.SizeFor(w, h) }

// ParseMode returns the prediction mode with the given name, such as
// "NEARESTMV" or "GLOBAL_GLOBALMV".
func ParseMode(name string) (Mode, bool) { return block.ParseMode(name) }

// Frames and global motion.
type (
	// Frame is the record of a decoded frame kept for use as a reference.
	Frame        = frame.Buffer
	FrameType    = frame.Type
	GlobalMotion = frame.GlobalMotion
	WarpType     = frame.WarpType
	SkipMode     = frame.SkipMode
)

// Frame types.
const (
	KeyFrame       = frame.KeyFrame
	InterFrame     = frame.InterFrame
	IntraOnlyFrame = frame.IntraOnlyFrame
	SwitchFrame    = frame.SwitchFrame
)

// Global motion model kinds.
const (
	Identity    = frame.Identity
	Translation = frame.Translation
	RotZoom     = frame.RotZoom
	Affine      = frame.Affine
)

// Candidate stack results.
type (
	Entry  = refmv.Entry
	Result = refmv.Result
	Sample = warp.Sample
	Point  = warp.Point
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger sets the logger used by decoders created afterwards. The
// default discards everything.
func SetLogger(l zerolog.Logger) { logger.Store(&l) }

func currentLogger() zerolog.Logger { return *logger.Load() }
