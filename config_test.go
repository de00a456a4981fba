package arena

import (
	"flag"
	"testing"

	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/msgarena/layout"
	"github.com/pavanmanishd/msgarena/limit"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	flagext.DefaultValues(&cfg)

	assert.Equal(t, DefaultSegmentBytes, cfg.InitialSegmentBytes)
	assert.Equal(t, 0, cfg.MaxBytes)
	assert.Equal(t, DefaultMaxLevel, cfg.MaxLevel)
	require.NoError(t, cfg.Validate())

	a, err := NewArenaFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultSegmentBytes+8, a.Capacity())
}

func TestConfigFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlagsWithPrefix("writer.", fs)

	require.NoError(t, fs.Parse([]string{
		"-writer.initial-segment-bytes=100",
		"-writer.max-bytes=4096",
		"-writer.max-level=3",
	}))
	assert.Equal(t, Config{InitialSegmentBytes: 100, MaxBytes: 4096, MaxLevel: 3}, cfg)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative segment bytes", Config{InitialSegmentBytes: -1}},
		{"negative max bytes", Config{MaxBytes: -8}},
		{"negative max level", Config{MaxLevel: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)

			_, err = NewArenaFromConfig(tt.cfg)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestConfigLimiter(t *testing.T) {
	assert.Equal(t, limit.Unlimited{}, (&Config{}).Limiter())
	assert.IsType(t, &limit.Limited{}, (&Config{MaxLevel: 4}).Limiter())

	// Each call hands out an independent quota
	cfg := Config{MaxBytes: 16}
	first, second := cfg.Limiter(), cfg.Limiter()
	require.NoError(t, first.Bytes(16))
	require.NoError(t, second.Bytes(16))
}

func TestNewArenaFromConfigEnforcesLimits(t *testing.T) {
	a, err := NewArenaFromConfig(Config{InitialSegmentBytes: 64, MaxBytes: 32, MaxLevel: 1})
	require.NoError(t, err)

	_, err = a.Allocate(24, nil)
	require.NoError(t, err)
	_, err = a.Allocate(16, nil)
	assert.True(t, errors.Is(err, limit.ErrQuotaExceeded), "got %v", err)
	assert.Equal(t, 32, a.SizeInUse())

	b, err := NewArenaFromConfig(Config{MaxLevel: 1})
	require.NoError(t, err)
	root, err := b.InitRoot(layout.StructBytes{Pointers: 8})
	require.NoError(t, err)
	child, err := root.InitStruct(0, layout.StructBytes{Pointers: 8})
	require.NoError(t, err)
	_, err = child.InitStruct(0, layout.StructBytes{})
	assert.True(t, errors.Is(err, limit.ErrDepthExceeded), "got %v", err)
}

func TestNewArenaFromConfigOptionOverride(t *testing.T) {
	a, err := NewArenaFromConfig(Config{MaxBytes: 8}, WithLimiter(limit.Unlimited{}))
	require.NoError(t, err)
	_, err = a.Allocate(1024, nil)
	assert.NoError(t, err)
}
