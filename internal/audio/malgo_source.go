package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/wave"
)

const minReadTimeout = 50 * time.Millisecond

var lastSessionID atomic.Int32

// MalgoSource implements Source on top of a miniaudio capture device
type MalgoSource struct {
	format  wave.Config
	config  CaptureConfig
	logger  *zap.Logger
	ring    *RingBuffer
	ready   chan struct{}
	closed  chan struct{}
	timeout time.Duration

	mu           sync.Mutex
	running      bool
	sessionID    int
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
}

// NewMalgoSource creates a capture source for the default input device
func NewMalgoSource(format wave.Config, config CaptureConfig, logger *zap.Logger) (*MalgoSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if config.BufferFrames == 0 {
		return nil, fmt.Errorf("buffer frames must be positive")
	}
	if config.RingChunks < 2 {
		config.RingChunks = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &MalgoSource{
		format:    format,
		config:    config,
		logger:    logger,
		ready:     make(chan struct{}, 1),
		closed:    make(chan struct{}),
		sessionID: NoSession,
	}
	s.ring = NewRingBuffer(s.ChunkSize() * config.RingChunks)
	s.timeout = ChunkDuration(format, s.ChunkSize()) * time.Duration(config.ReadTimeoutChunks)
	if s.timeout < minReadTimeout {
		s.timeout = minReadTimeout
	}
	return s, nil
}

// MalgoFactory returns a Factory producing malgo sources with the given buffering
func MalgoFactory(config CaptureConfig, logger *zap.Logger) Factory {
	return func(format wave.Config) (Source, error) {
		return NewMalgoSource(format, config, logger)
	}
}

func malgoFormat(bitDepth uint16) (malgo.FormatType, error) {
	switch bitDepth {
	case 8:
		return malgo.FormatU8, nil
	case 16:
		return malgo.FormatS16, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
}

// Start opens the default capture device and begins filling the ring buffer
func (s *MalgoSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("source is already running")
	}

	format, err := malgoFormat(s.format.BitDepth)
	if err != nil {
		return err
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = uint32(s.format.Channels)
	deviceConfig.SampleRate = s.format.SampleRate
	deviceConfig.PeriodSizeInFrames = s.config.BufferFrames

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			if _, err := s.ring.Write(pInputSamples); err != nil {
				s.logger.Debug("capture overflow, dropping frames", zap.Int("bytes", len(pInputSamples)))
			}
			select {
			case s.ready <- struct{}{}:
			default:
			}
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to start device: %w", err)
	}

	s.device = device
	s.malgoContext = malgoCtx
	s.sessionID = int(lastSessionID.Add(1))
	s.running = true
	s.logger.Info("capture started",
		zap.Stringer("format", s.format),
		zap.Int("chunk_bytes", s.ChunkSize()),
		zap.Int("session_id", s.sessionID))
	return nil
}

// Read blocks until a full chunk is buffered. It returns ErrInvalidOperation
// if the device does not deliver one within the read timeout.
func (s *MalgoSource) Read(p []byte) (int, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for s.ring.Available() < len(p) {
		select {
		case <-s.closed:
			return 0, ErrSourceClosed
		case <-timer.C:
			return 0, ErrInvalidOperation
		case <-s.ready:
		}
	}
	return s.ring.Read(p), nil
}

// ChunkSize returns the bytes in one period of BufferFrames frames
func (s *MalgoSource) ChunkSize() int {
	return int(s.config.BufferFrames) * s.format.BlockAlign()
}

// SessionID returns the id assigned at Start, or NoSession
func (s *MalgoSource) SessionID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Overflow returns the number of captured bytes dropped because the reader fell behind
func (s *MalgoSource) Overflow() uint64 {
	return s.ring.Overflow()
}

// Close stops the device and releases the malgo context
func (s *MalgoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return nil
	default:
		close(s.closed)
	}
	if !s.running {
		return nil
	}
	s.running = false
	s.sessionID = NoSession

	var stopErr error
	if s.device != nil {
		if err := s.device.Stop(); err != nil {
			stopErr = fmt.Errorf("failed to stop device: %w", err)
		}
		s.device.Uninit()
		s.device = nil
	}
	if s.malgoContext != nil {
		_ = s.malgoContext.Uninit()
		s.malgoContext.Free()
		s.malgoContext = nil
	}

	if dropped := s.ring.Overflow(); dropped > 0 {
		s.logger.Warn("capture dropped audio", zap.Uint64("bytes", dropped))
	}
	return stopErr
}
