package wave

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"default", DefaultConfig(), true},
		{"stereo 8bit", Config{SampleRate: 8000, Channels: Stereo, BitDepth: 8}, true},
		{"mono 32bit", Config{SampleRate: 96000, Channels: Mono, BitDepth: 32}, true},
		{"zero rate", Config{SampleRate: 0, Channels: Mono, BitDepth: 16}, false},
		{"surround", Config{SampleRate: 48000, Channels: 6, BitDepth: 16}, false},
		{"24bit", Config{SampleRate: 48000, Channels: Mono, BitDepth: 24}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConfigDerivedSizes(t *testing.T) {
	cfg := Config{SampleRate: 16000, Channels: Mono, BitDepth: 16}
	assert.Equal(t, 2, cfg.BlockAlign())
	assert.Equal(t, 32000, cfg.ByteRate())

	cfg = Config{SampleRate: 44100, Channels: Stereo, BitDepth: 32}
	assert.Equal(t, 8, cfg.BlockAlign())
	assert.Equal(t, 352800, cfg.ByteRate())
	assert.Equal(t, "44100Hz/stereo/32bit", cfg.String())
}
