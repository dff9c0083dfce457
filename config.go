package mvref

import (
	"fmt"

	"github.com/deepteams/mvref/internal/motionfield"
	"github.com/deepteams/mvref/internal/refbank"
)

// Config holds the sequence level settings of a Decoder.
type Config struct {
	SuperblockSize  int  `mapstructure:"superblock_size"`   // 64 or 128 pixels.
	EnableOrderHint bool `mapstructure:"enable_order_hint"` // Order hints present in frame headers.
	OrderHintBits   int  `mapstructure:"order_hint_bits"`   // 1-8, width of the order hint field.

	// AllowRefFrameMVs enables temporal candidates for the sequence. A
	// frame header can still turn them off for one frame.
	AllowRefFrameMVs bool `mapstructure:"allow_ref_frame_mvs"`

	MaxDRLBits int `mapstructure:"max_drl_bits"` // 1-7, stack grows to MaxDRLBits+1 from the banks.
	BankSize   int `mapstructure:"bank_size"`    // 1-64, entries per reference bank.

	// AboveBanks adds a bank set per superblock column, filled
	// alternately with the left bank.
	AboveBanks bool `mapstructure:"above_banks"`

	// CheckCodedMap stops row and column scans at units of the current
	// superblock that are not decoded yet. Needed with extended
	// partitions.
	CheckCodedMap bool `mapstructure:"check_coded_map"`

	// CompoundWarpSamples lets warp samples come from either reference of
	// compound neighbours.
	CompoundWarpSamples bool `mapstructure:"compound_warp_samples"`

	// ProjectionPolicy picks the motion field schedule: "ranked" (default)
	// or "labeled".
	ProjectionPolicy string `mapstructure:"projection_policy"`
}

// DefaultConfig returns 64x64 superblocks, 7 bit order hints, temporal
// candidates on and 32 entry banks.
func DefaultConfig() Config {
	return Config{
		SuperblockSize:   64,
		EnableOrderHint:  true,
		OrderHintBits:    7,
		AllowRefFrameMVs: true,
		MaxDRLBits:       7,
		BankSize:         refbank.DefaultSize,
		ProjectionPolicy: motionfield.PolicyRanked,
	}
}

// Validate checks every field of c.
func (c Config) Validate() error {
	if c.SuperblockSize != 64 && c.SuperblockSize != 128 {
		return fmt.Errorf("%w: superblock size %d, must be 64 or 128", ErrInvalidConfig, c.SuperblockSize)
	}
	if c.EnableOrderHint && (c.OrderHintBits < 1 || c.OrderHintBits > 8) {
		return fmt.Errorf("%w: order hint bits %d out of range [1, 8]", ErrInvalidConfig, c.OrderHintBits)
	}
	if c.MaxDRLBits < 1 || c.MaxDRLBits > 7 {
		return fmt.Errorf("%w: max DRL bits %d out of range [1, 7]", ErrInvalidConfig, c.MaxDRLBits)
	}
	if c.BankSize < 1 || c.BankSize > refbank.MaxSize {
		return fmt.Errorf("%w: bank size %d out of range [1, %d]", ErrInvalidConfig, c.BankSize, refbank.MaxSize)
	}
	if _, err := motionfield.PolicyByName(c.ProjectionPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) superblockMi() int { return c.SuperblockSize / 4 }
