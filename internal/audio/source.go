package audio

import (
	"errors"
	"time"

	"github.com/emmett/voxrec/internal/wave"
)

// NoSession is the session identifier of a source that is not capturing
const NoSession = -1

// ErrInvalidOperation is returned by Source.Read for a transient failure:
// the device had nothing usable for this read. Callers skip the chunk and
// read again.
var ErrInvalidOperation = errors.New("audio: invalid read operation")

// ErrSourceClosed is returned by Source.Read after Close
var ErrSourceClosed = errors.New("audio: source closed")

// Source is a hardware capture stream delivering fixed-size PCM chunks
type Source interface {
	// Start begins capture
	Start() error

	// Read fills p with one chunk of PCM. It blocks for at most a few chunk
	// durations and returns ErrInvalidOperation when no chunk is available.
	Read(p []byte) (int, error)

	// ChunkSize returns the minimum buffer size reported by the device for
	// the active format, in bytes
	ChunkSize() int

	// SessionID returns the capture session identifier, or NoSession
	SessionID() int

	// Close stops capture and releases the device
	Close() error
}

// Factory creates a source for a wave format. Sources are created lazily on
// the first start and after every format change.
type Factory func(cfg wave.Config) (Source, error)

// NoiseSuppressor toggles hardware noise suppression for a capture session
type NoiseSuppressor interface {
	Enable(sessionID int) error
	Disable(sessionID int) error
}

// CaptureConfig holds device buffering settings for a capture source
type CaptureConfig struct {
	// BufferFrames is the number of frames per chunk
	// Smaller = lower latency, more loop iterations
	BufferFrames uint32

	// RingChunks is how many chunks the device side may buffer before the
	// oldest capture is dropped
	RingChunks int

	// ReadTimeoutChunks bounds a blocking Read, in chunk durations
	ReadTimeoutChunks int
}

// DefaultCaptureConfig returns 30ms chunks at 16kHz with about one second of
// device-side buffering
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		BufferFrames:      480, // 30ms at 16kHz
		RingChunks:        32,
		ReadTimeoutChunks: 4,
	}
}

// ChunkDuration returns the playback duration of size bytes of cfg audio
func ChunkDuration(cfg wave.Config, size int) time.Duration {
	rate := cfg.ByteRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(size) * time.Second / time.Duration(rate)
}
