// Package audiotest provides a scripted audio.Source for tests.
package audiotest

import (
	"errors"
	"sync"
	"time"

	"github.com/emmett/voxrec/internal/audio"
	"github.com/emmett/voxrec/internal/wave"
)

// Source replays queued chunks. When the queue is empty a read waits for
// Idle and then reports audio.ErrInvalidOperation, like a device that had
// nothing to deliver.
type Source struct {
	mu        sync.Mutex
	chunkSize int
	queue     []item
	started   bool
	closed    bool
	sessionID int
	reads     int
	formats   []wave.Config

	// Idle is how long an empty read blocks
	Idle time.Duration

	// StartErr is returned by Start when set
	StartErr error

	// NoSessionID makes Start leave the session id at audio.NoSession
	NoSessionID bool
}

type item struct {
	data []byte
	err  error
}

// NewSource returns a source delivering chunks of chunkSize bytes
func NewSource(chunkSize int) *Source {
	return &Source{
		chunkSize: chunkSize,
		sessionID: audio.NoSession,
		Idle:      time.Millisecond,
	}
}

// Factory returns an audio.Factory that always hands out s and records the
// formats it was asked for
func (s *Source) Factory() audio.Factory {
	return func(cfg wave.Config) (audio.Source, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.formats = append(s.formats, cfg)
		return s, nil
	}
}

// Formats returns every format passed to the factory
func (s *Source) Formats() []wave.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wave.Config(nil), s.formats...)
}

// Push queues chunks for delivery
func (s *Source) Push(chunks ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.queue = append(s.queue, item{data: c})
	}
}

// PushError queues a read that fails with err
func (s *Source) PushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, item{err: err})
}

// Pending returns the number of queued reads not yet delivered
func (s *Source) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Reads returns the number of reads served from the queue
func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Started reports whether the source is capturing
func (s *Source) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Closed reports whether Close was called since the last Start
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return s.StartErr
	}
	if s.started {
		return errors.New("audiotest: already started")
	}
	s.started = true
	s.closed = false
	if !s.NoSessionID {
		s.sessionID = 7
	}
	return nil
}

func (s *Source) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, audio.ErrSourceClosed
	}
	if len(s.queue) == 0 {
		idle := s.Idle
		s.mu.Unlock()
		time.Sleep(idle)
		return 0, audio.ErrInvalidOperation
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.reads++
	s.mu.Unlock()

	if next.err != nil {
		return 0, next.err
	}
	return copy(p, next.data), nil
}

func (s *Source) ChunkSize() int {
	return s.chunkSize
}

func (s *Source) SessionID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.started = false
	s.sessionID = audio.NoSession
	return nil
}

// NoiseSuppressor records Enable and Disable calls
type NoiseSuppressor struct {
	mu       sync.Mutex
	Enabled  []int
	Disabled []int
	Err      error
}

func (n *NoiseSuppressor) Enable(sessionID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Enabled = append(n.Enabled, sessionID)
	return nil
}

func (n *NoiseSuppressor) Disable(sessionID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Disabled = append(n.Disabled, sessionID)
	return nil
}

// Calls returns copies of the recorded Enable and Disable session ids
func (n *NoiseSuppressor) Calls() (enabled, disabled []int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.Enabled...), append([]int(nil), n.Disabled...)
}
