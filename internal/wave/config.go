package wave

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ChannelMask is the channel layout of a recording
type ChannelMask uint16

const (
	Mono   ChannelMask = 1
	Stereo ChannelMask = 2
)

// String returns the channel layout name
func (c ChannelMask) String() string {
	switch c {
	case Mono:
		return "mono"
	case Stereo:
		return "stereo"
	default:
		return fmt.Sprintf("channels(%d)", uint16(c))
	}
}

// Config describes the PCM format of one recording.
// It is fixed for the lifetime of a recording.
type Config struct {
	// SampleRate is the number of frames per second (Hz)
	SampleRate uint32 `yaml:"sample_rate" validate:"gt=0"`

	// Channels is the channel layout, 1 = mono, 2 = stereo
	Channels ChannelMask `yaml:"channels" validate:"oneof=1 2"`

	// BitDepth is the number of bits per sample: 8, 16 or 32
	BitDepth uint16 `yaml:"bit_depth" validate:"oneof=8 16 32"`
}

// DefaultConfig returns 16kHz mono 16-bit PCM
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		Channels:   Mono,
		BitDepth:   16,
	}
}

var validate = validator.New()

// Validate checks that the configuration describes a supported PCM format
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid wave config %s: %w", c, err)
	}
	return nil
}

// BytesPerSample returns the size of one sample of one channel
func (c Config) BytesPerSample() int {
	return int(c.BitDepth) / 8
}

// BlockAlign returns the size of one frame (all channels) in bytes
func (c Config) BlockAlign() int {
	return int(c.Channels) * c.BytesPerSample()
}

// ByteRate returns the number of payload bytes per second of audio
func (c Config) ByteRate() int {
	return int(c.SampleRate) * c.BlockAlign()
}

// String returns a short human-readable form like "16000Hz/mono/16bit"
func (c Config) String() string {
	return fmt.Sprintf("%dHz/%s/%dbit", c.SampleRate, c.Channels, c.BitDepth)
}
