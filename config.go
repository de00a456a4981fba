package arena

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/pavanmanishd/msgarena/limit"
)

// DefaultSegmentBytes is the default first-segment payload (8 KiB).
const DefaultSegmentBytes = 8 << 10

// DefaultMaxLevel is the default nesting depth bound.
const DefaultMaxLevel = 64

// Config holds the tunables for arenas built by a process.
type Config struct {
	InitialSegmentBytes int `yaml:"initial_segment_bytes"`
	MaxBytes            int `yaml:"max_bytes"`
	MaxLevel            int `yaml:"max_level"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("arena.", f)
}

func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.InitialSegmentBytes, prefix+"initial-segment-bytes", DefaultSegmentBytes, "Payload bytes of the first segment of each message, after the root word.")
	f.IntVar(&cfg.MaxBytes, prefix+"max-bytes", 0, "Maximum bytes a single message may allocate. 0 means unlimited.")
	f.IntVar(&cfg.MaxLevel, prefix+"max-level", DefaultMaxLevel, "Maximum struct nesting depth below the root. 0 means unlimited.")
}

func (cfg *Config) Validate() error {
	if cfg.InitialSegmentBytes < 0 {
		return errors.Wrapf(ErrInvalidArgument, "initial segment bytes %d is negative", cfg.InitialSegmentBytes)
	}
	if cfg.MaxBytes < 0 {
		return errors.Wrapf(ErrInvalidArgument, "max bytes %d is negative", cfg.MaxBytes)
	}
	if cfg.MaxLevel < 0 {
		return errors.Wrapf(ErrInvalidArgument, "max level %d is negative", cfg.MaxLevel)
	}
	return nil
}

// Limiter builds a fresh limiter for one message.
func (cfg *Config) Limiter() limit.Limiter {
	if cfg.MaxBytes == 0 && cfg.MaxLevel == 0 {
		return limit.Unlimited{}
	}
	return limit.NewLimited(cfg.MaxBytes, cfg.MaxLevel)
}

// NewArenaFromConfig validates cfg and creates an arena limited by it. opts
// are applied after the limiter, so WithLimiter overrides it.
func NewArenaFromConfig(cfg Config, opts ...Option) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithLimiter(cfg.Limiter())}, opts...)
	return NewArena(cfg.InitialSegmentBytes, opts...), nil
}
