// Package app wires the recorder to its outer surfaces: the CLI, the gRPC
// service and the MCP tools all drive a Session.
package app

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/analyzer"
	"github.com/emmett/voxrec/internal/audio"
	"github.com/emmett/voxrec/internal/config"
	"github.com/emmett/voxrec/internal/output"
	"github.com/emmett/voxrec/internal/recorder"
	"github.com/emmett/voxrec/internal/storage"
)

// Status is a point-in-time view of a Session
type Status struct {
	State            string  `json:"state"`
	Path             string  `json:"path,omitempty"`
	SessionID        int     `json:"session_id"`
	Elapsed          int     `json:"elapsed"`
	Peak             int     `json:"peak"`
	Level            float64 `json:"level"`
	Format           string  `json:"format"`
	NoiseSuppression bool    `json:"noise_suppression"`
	LastError        string  `json:"last_error,omitempty"`
}

// Session owns a Recorder, picks storage targets for it and republishes its
// telemetry on a Hub
type Session struct {
	rec        *recorder.Recorder
	hub        *Hub
	sandboxDir string
	logger     *zap.Logger

	mu   sync.Mutex
	path string

	elapsed atomic.Int64
	peak    atomic.Int64
}

// NewRecorder builds a Recorder capturing from the configured malgo device
func NewRecorder(cfg *config.Config, logger *zap.Logger) (*recorder.Recorder, error) {
	factory := audio.MalgoFactory(cfg.Audio.Capture(), logger.Named("audio"))
	rec, err := recorder.New(cfg.Audio.Format, factory, recorder.WithLogger(logger.Named("recorder")))
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}
	if err := rec.SetNoiseSuppression(cfg.Audio.NoiseSuppression); err != nil {
		return nil, fmt.Errorf("failed to set noise suppression: %w", err)
	}
	return rec, nil
}

// NewSession takes over the recorder's listeners
func NewSession(rec *recorder.Recorder, sandboxDir string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		rec:        rec,
		hub:        NewHub(),
		sandboxDir: sandboxDir,
		logger:     logger,
	}

	rec.SetStateListener(func(old, new recorder.State) {
		s.hub.Publish(output.StateEvent(old.String(), new.String()))
	})
	rec.SetAmplitudeListener(func(peak int) {
		s.peak.Store(int64(peak))
		s.hub.Publish(output.AmplitudeEvent(peak))
	})
	rec.SetElapsedListener(func(seconds int) {
		s.elapsed.Store(int64(seconds))
		s.hub.Publish(output.ElapsedEvent(seconds))
	})
	rec.SetErrorListener(func(err error) {
		s.logger.Error("recording failed", zap.Error(err))
		s.hub.Publish(output.ErrorEvent(err))
	})
	return s
}

// Recorder returns the underlying recorder
func (s *Session) Recorder() *recorder.Recorder {
	return s.rec
}

// Hub returns the telemetry hub
func (s *Session) Hub() *Hub {
	return s.hub
}

// Start records to path, or to a new sandbox file when path is empty
func (s *Session) Start(path string) (string, error) {
	target := storage.Resolve(path, s.sandboxDir)

	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.rec.Start(target)
	if err != nil {
		return "", err
	}
	s.path = name
	s.elapsed.Store(0)
	s.peak.Store(0)
	return name, nil
}

// Pause pauses the current recording
func (s *Session) Pause() error {
	return s.rec.Pause()
}

// Resume resumes a paused recording
func (s *Session) Resume() error {
	return s.rec.Resume()
}

// Toggle pauses a running recording or resumes a paused one
func (s *Session) Toggle() error {
	if s.rec.State() == recorder.Paused {
		return s.rec.Resume()
	}
	return s.rec.Pause()
}

// Stop finishes the current recording and returns its path
func (s *Session) Stop() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.rec.Stop()
	if err != nil {
		return s.path, err
	}
	s.hub.Publish(output.SavedEvent(s.path))
	return s.path, nil
}

// Status reports the recorder state and the latest telemetry
func (s *Session) Status() Status {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	cfg := s.rec.Config()
	peak := int(s.peak.Load())
	st := Status{
		State:            s.rec.State().String(),
		Path:             path,
		SessionID:        s.rec.SessionID(),
		Elapsed:          int(s.elapsed.Load()),
		Peak:             peak,
		Level:            analyzer.Level(peak, int(cfg.BitDepth)),
		Format:           cfg.String(),
		NoiseSuppression: s.rec.NoiseSuppression(),
	}
	if err := s.rec.Err(); err != nil {
		st.LastError = err.Error()
	}
	return st
}
