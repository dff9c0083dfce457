package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/deepteams/mvref"
)

// settings is the decoder configuration plus the CLI's own keys.
type settings struct {
	Decoder  mvref.Config
	LogLevel zerolog.Level
	Tiles    [2]int
}

// loadSettings reads path (JSON, YAML or TOML by extension) when it is
// not empty and applies MVREF_* environment overrides on top of the
// defaults.
func loadSettings(path string) (settings, error) {
	v := viper.New()
	def := mvref.DefaultConfig()
	v.SetDefault("log.level", "warn")
	v.SetDefault("tiles.rows", 1)
	v.SetDefault("tiles.cols", 1)
	v.SetDefault("superblock_size", def.SuperblockSize)
	v.SetDefault("enable_order_hint", def.EnableOrderHint)
	v.SetDefault("order_hint_bits", def.OrderHintBits)
	v.SetDefault("allow_ref_frame_mvs", def.AllowRefFrameMVs)
	v.SetDefault("max_drl_bits", def.MaxDRLBits)
	v.SetDefault("bank_size", def.BankSize)
	v.SetDefault("above_banks", def.AboveBanks)
	v.SetDefault("check_coded_map", def.CheckCodedMap)
	v.SetDefault("compound_warp_samples", def.CompoundWarpSamples)
	v.SetDefault("projection_policy", def.ProjectionPolicy)

	v.SetEnvPrefix("MVREF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s.Decoder); err != nil {
		return settings{}, fmt.Errorf("config: %w", err)
	}
	if err := s.Decoder.Validate(); err != nil {
		return settings{}, err
	}
	lvl, err := zerolog.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return settings{}, fmt.Errorf("config: log.level: %w", err)
	}
	s.LogLevel = lvl
	s.Tiles = [2]int{v.GetInt("tiles.rows"), v.GetInt("tiles.cols")}
	if s.Tiles[0] < 1 || s.Tiles[1] < 1 {
		return settings{}, errors.New("config: tiles.rows and tiles.cols must be positive")
	}
	return s, nil
}

// newLogger writes human readable logs to w.
func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
