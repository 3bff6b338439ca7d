// Package recorder streams captured PCM into a WAVE file.
//
// A Recorder owns the Stopped -> Recording <-> Paused -> Stopped lifecycle.
// Start launches one capture goroutine per episode which is the only reader
// of the audio source and the only writer of the output sink. Telemetry is
// delivered on a separate goroutine so slow listeners never stall capture.
// Stop joins the capture goroutine before the header is patched, so the
// finalizer always sees the final file length.
//
// Listeners are single-slot: setting one replaces the previous one. They must
// not call Start, Pause, Resume, Stop, UpdateConfig or SetNoiseSuppression
// synchronously; the read-only accessors are safe.
package recorder

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/audio"
	"github.com/emmett/voxrec/internal/storage"
	"github.com/emmett/voxrec/internal/wave"
)

// Recorder coordinates an audio source, a storage target and the header finalizer
type Recorder struct {
	logger     *zap.Logger
	factory    audio.Factory
	suppressor audio.NoiseSuppressor

	// mu serializes control operations
	mu      sync.Mutex
	source  audio.Source
	episode *episode

	state            atomic.Int32
	sessionID        atomic.Int64
	noiseSuppression atomic.Bool

	propsMu sync.RWMutex
	config  wave.Config
	lastErr error

	listenerMu  sync.RWMutex
	onState     func(old, new State)
	onAmplitude func(peak int)
	onElapsed   func(seconds int)
	onError     func(err error)
}

// episode is one start..stop run of the capture loop
type episode struct {
	source   audio.Source
	sink     io.WriteCloser
	target   storage.Target
	config   wave.Config
	byteRate int64
	notify   *notifier

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// owned by the capture goroutine until done is closed
	written int64
	skipped int
	err     error
}

func (ep *episode) signalStop() {
	ep.stopOnce.Do(func() { close(ep.stop) })
}

// Option configures a Recorder
type Option func(*Recorder)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithNoiseSuppressor sets the capability used when noise suppression is on
func WithNoiseSuppressor(ns audio.NoiseSuppressor) Option {
	return func(r *Recorder) { r.suppressor = ns }
}

// WithStateListener sets the state change listener
func WithStateListener(fn func(old, new State)) Option {
	return func(r *Recorder) { r.onState = fn }
}

// WithAmplitudeListener sets the per-chunk peak amplitude listener
func WithAmplitudeListener(fn func(peak int)) Option {
	return func(r *Recorder) { r.onAmplitude = fn }
}

// WithElapsedListener sets the elapsed seconds listener
func WithElapsedListener(fn func(seconds int)) Option {
	return func(r *Recorder) { r.onElapsed = fn }
}

// WithErrorListener sets the listener for fatal capture errors
func WithErrorListener(fn func(err error)) Option {
	return func(r *Recorder) { r.onError = fn }
}

// New creates a stopped Recorder. Sources are obtained from factory when needed.
func New(cfg wave.Config, factory audio.Factory, opts ...Option) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.New("recorder: nil audio source factory")
	}
	r := &Recorder{
		logger:  zap.NewNop(),
		factory: factory,
		config:  cfg,
	}
	r.sessionID.Store(audio.NoSession)
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State returns the current state
func (r *Recorder) State() State {
	return State(r.state.Load())
}

// SessionID returns the capture session id, or audio.NoSession when stopped
func (r *Recorder) SessionID() int {
	return int(r.sessionID.Load())
}

// NoiseSuppression reports whether noise suppression is requested for the next start
func (r *Recorder) NoiseSuppression() bool {
	return r.noiseSuppression.Load()
}

// Config returns the wave format used by the next or current recording
func (r *Recorder) Config() wave.Config {
	r.propsMu.RLock()
	defer r.propsMu.RUnlock()
	return r.config
}

// Err returns the error that ended the most recent recording, if any
func (r *Recorder) Err() error {
	r.propsMu.RLock()
	defer r.propsMu.RUnlock()
	return r.lastErr
}

// SetStateListener replaces the state change listener
func (r *Recorder) SetStateListener(fn func(old, new State)) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.onState = fn
}

// SetAmplitudeListener replaces the peak amplitude listener
func (r *Recorder) SetAmplitudeListener(fn func(peak int)) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.onAmplitude = fn
}

// SetElapsedListener replaces the elapsed seconds listener
func (r *Recorder) SetElapsedListener(fn func(seconds int)) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.onElapsed = fn
}

// SetErrorListener replaces the fatal error listener
func (r *Recorder) SetErrorListener(fn func(err error)) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.onError = fn
}

// UpdateConfig changes the wave format. It is only legal while stopped and
// discards any prepared audio source.
func (r *Recorder) UpdateConfig(cfg wave.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.State(); st != Stopped {
		return &InvalidStateError{Op: "update config", State: st}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.propsMu.Lock()
	r.config = cfg
	r.propsMu.Unlock()

	r.releaseSourceLocked()
	r.logger.Info("wave config updated", zap.Stringer("format", cfg))
	return nil
}

// SetNoiseSuppression requests noise suppression for the next recording.
// It is only legal while stopped.
func (r *Recorder) SetNoiseSuppression(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.State(); st != Stopped {
		return &InvalidStateError{Op: "change noise suppression", State: st}
	}
	r.noiseSuppression.Store(enabled)
	return nil
}

// Prepare creates the audio source ahead of Start so device errors surface
// early. Start prepares lazily if this was not called.
func (r *Recorder) Prepare() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.State(); st != Stopped {
		return &InvalidStateError{Op: "prepare", State: st}
	}
	return r.prepareLocked()
}

func (r *Recorder) prepareLocked() error {
	if r.source != nil {
		return nil
	}
	src, err := r.factory(r.Config())
	if err != nil {
		return &DeviceError{Op: "open", Err: err}
	}
	if src.ChunkSize() <= 0 {
		_ = src.Close()
		return &DeviceError{Op: "open", Err: errors.New("device reported no buffer size")}
	}
	r.source = src
	return nil
}

func (r *Recorder) releaseSourceLocked() {
	if r.source == nil {
		return
	}
	if err := r.source.Close(); err != nil {
		r.logger.Warn("failed to release audio source", zap.Error(err))
	}
	r.source = nil
}

// Start begins recording into target and returns the target's name.
// It is only legal while stopped.
func (r *Recorder) Start(target storage.Target) (string, error) {
	r.mu.Lock()
	name, err := r.startLocked(target)
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	r.notifyState(Stopped, Recording)
	return name, nil
}

func (r *Recorder) startLocked(target storage.Target) (string, error) {
	if st := r.State(); st != Stopped {
		return "", &InvalidStateError{Op: "start", State: st}
	}
	if target == nil {
		return "", errors.New("recorder: nil storage target")
	}
	if err := r.prepareLocked(); err != nil {
		return "", err
	}

	cfg := r.Config()
	sink, err := target.Create()
	if err != nil {
		r.releaseSourceLocked()
		return "", &StorageError{Op: "create", Path: target.Name(), Err: err}
	}
	if err := wave.WriteHeader(sink, cfg, 0); err != nil {
		_ = sink.Close()
		r.releaseSourceLocked()
		return "", &StorageError{Op: "write header to", Path: target.Name(), Err: err}
	}
	if err := r.source.Start(); err != nil {
		_ = sink.Close()
		r.releaseSourceLocked()
		return "", &DeviceError{Op: "start capture", Err: err}
	}

	sessionID := r.source.SessionID()
	r.sessionID.Store(int64(sessionID))
	if r.noiseSuppression.Load() {
		r.enableNoiseSuppression(sessionID)
	}

	ep := &episode{
		source:   r.source,
		sink:     sink,
		target:   target,
		config:   cfg,
		byteRate: int64(cfg.ByteRate()),
		notify:   newNotifier(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		written:  wave.HeaderSize,
	}
	r.episode = ep
	r.state.Store(int32(Recording))

	go r.capture(ep)
	go r.reap(ep)

	r.logger.Info("recording started",
		zap.String("path", target.Name()),
		zap.Stringer("format", cfg),
		zap.Int("session_id", sessionID),
		zap.Int("chunk_bytes", ep.source.ChunkSize()))
	return target.Name(), nil
}

func (r *Recorder) enableNoiseSuppression(sessionID int) {
	switch {
	case sessionID == audio.NoSession:
		r.logger.Warn("noise suppression requested but the source has no session")
	case r.suppressor == nil:
		r.logger.Warn("noise suppression requested but not available")
	default:
		if err := r.suppressor.Enable(sessionID); err != nil {
			r.logger.Warn("failed to enable noise suppression", zap.Int("session_id", sessionID), zap.Error(err))
		}
	}
}

// Pause stops appending audio to the file. Capture and telemetry continue.
func (r *Recorder) Pause() error {
	return r.toggle("pause", Recording, Paused)
}

// Resume appends audio to the file again after Pause
func (r *Recorder) Resume() error {
	return r.toggle("resume", Paused, Recording)
}

func (r *Recorder) toggle(op string, from, to State) error {
	r.mu.Lock()
	if !r.state.CompareAndSwap(int32(from), int32(to)) {
		st := r.State()
		r.mu.Unlock()
		return &InvalidStateError{Op: op, State: st}
	}
	r.mu.Unlock()

	r.logger.Info("recording " + to.String())
	r.notifyState(from, to)
	return nil
}

// Stop ends the recording: the capture goroutine is joined, the source is
// released, and the file header is patched before Stop returns. Errors from
// the capture loop or the finalizer are returned; the recorder is stopped
// either way.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	old := r.State()
	if old == Stopped {
		r.mu.Unlock()
		return &InvalidStateError{Op: "stop", State: old}
	}
	ep := r.episode
	err := r.teardownLocked(ep)
	r.mu.Unlock()

	r.notifyState(old, Stopped)
	if ep.err != nil {
		r.notifyError(ep.err)
	}
	return err
}

// reap forces the recorder to stop when the capture loop dies on its own
func (r *Recorder) reap(ep *episode) {
	<-ep.done
	if ep.err == nil {
		return
	}

	r.mu.Lock()
	if r.episode != ep {
		r.mu.Unlock()
		return
	}
	old := r.State()
	err := r.teardownLocked(ep)
	r.mu.Unlock()

	r.logger.Error("recording stopped by fatal error", zap.Error(err))
	r.notifyState(old, Stopped)
	r.notifyError(ep.err)
}

func (r *Recorder) teardownLocked(ep *episode) error {
	ep.signalStop()
	<-ep.done
	ep.notify.close()

	sessionID := r.SessionID()
	if r.noiseSuppression.Load() && r.suppressor != nil && sessionID != audio.NoSession {
		if err := r.suppressor.Disable(sessionID); err != nil {
			r.logger.Warn("failed to disable noise suppression", zap.Int("session_id", sessionID), zap.Error(err))
		}
	}
	r.releaseSourceLocked()
	r.sessionID.Store(audio.NoSession)

	var errs []error
	if ep.err != nil {
		errs = append(errs, ep.err)
	}
	if err := r.finalize(ep); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	r.propsMu.Lock()
	r.lastErr = err
	r.propsMu.Unlock()

	r.episode = nil
	r.state.Store(int32(Stopped))

	r.logger.Info("recording stopped",
		zap.String("path", ep.target.Name()),
		zap.Int64("bytes", ep.written),
		zap.Int("skipped_reads", ep.skipped))
	return err
}

// finalize patches the header through a fresh handle; the sink is already closed
func (r *Recorder) finalize(ep *episode) (err error) {
	f, err := ep.target.Open()
	if err != nil {
		return &StorageError{Op: "open for finalizing", Path: ep.target.Name(), Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &StorageError{Op: "close after finalizing", Path: ep.target.Name(), Err: cerr}
		}
	}()

	h, err := wave.Finalize(f, ep.config)
	if err != nil {
		return err
	}
	r.logger.Debug("wave header finalized",
		zap.String("path", ep.target.Name()),
		zap.Uint32("data_size", h.DataSize),
		zap.Uint32("riff_size", h.ChunkSize))
	return nil
}

func (r *Recorder) notifyState(old, new State) {
	r.listenerMu.RLock()
	fn := r.onState
	r.listenerMu.RUnlock()
	if fn != nil {
		fn(old, new)
	}
}

func (r *Recorder) notifyError(err error) {
	r.listenerMu.RLock()
	fn := r.onError
	r.listenerMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
