package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/emmett/voxrec/internal/audio"
	"github.com/emmett/voxrec/internal/audio/audiotest"
	"github.com/emmett/voxrec/internal/output"
	"github.com/emmett/voxrec/internal/recorder"
	"github.com/emmett/voxrec/internal/wave"
)

const waitFor = 2 * time.Second

func newTestSession(t *testing.T, src *audiotest.Source) *Session {
	t.Helper()
	logger := zaptest.NewLogger(t)
	rec, err := recorder.New(wave.DefaultConfig(), src.Factory(), recorder.WithLogger(logger))
	require.NoError(t, err)
	return NewSession(rec, filepath.Join(t.TempDir(), "sandbox"), logger)
}

func TestHubDropsForFullSubscribers(t *testing.T) {
	hub := NewHub()
	fast, cancelFast := hub.Subscribe(8)
	slow, cancelSlow := hub.Subscribe(1)
	defer cancelFast()

	for i := range 3 {
		hub.Publish(output.ElapsedEvent(i))
	}

	assert.Len(t, fast, 3)
	assert.Len(t, slow, 1)
	assert.Equal(t, uint64(2), hub.Dropped())
	assert.Equal(t, 2, hub.Subscribers())

	cancelSlow()
	cancelSlow()
	assert.Equal(t, 1, hub.Subscribers())
	ev, ok := <-slow
	require.True(t, ok)
	assert.Equal(t, 0, *ev.Elapsed)
	_, ok = <-slow
	assert.False(t, ok)
}

func TestSessionSandboxRecording(t *testing.T) {
	src := audiotest.NewSource(3200)
	s := newTestSession(t, src)
	events, cancel := s.Hub().Subscribe(64)
	defer cancel()

	path, err := s.Start("")
	require.NoError(t, err)
	assert.Equal(t, s.sandboxDir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "rec-"))

	src.Push(silence(3200), silence(3200))
	require.Eventually(t, func() bool {
		info, err := os.Stat(path)
		return err == nil && info.Size() == wave.HeaderSize+6400
	}, waitFor, time.Millisecond)

	require.NoError(t, s.Toggle())
	assert.Equal(t, "paused", s.Status().State)
	require.NoError(t, s.Toggle())

	st := s.Status()
	assert.Equal(t, "recording", st.State)
	assert.Equal(t, path, st.Path)
	assert.Equal(t, 7, st.SessionID)
	assert.Equal(t, "16000Hz/mono/16bit", st.Format)

	saved, err := s.Stop()
	require.NoError(t, err)
	assert.Equal(t, path, saved)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(wave.HeaderSize+6400), info.Size())

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Equal(t, output.EventState, types[0])
	assert.Equal(t, output.EventSaved, types[len(types)-1])
	assert.Contains(t, types, output.EventAmplitude)
	assert.Contains(t, types, output.EventElapsed)

	st = s.Status()
	assert.Equal(t, "stopped", st.State)
	assert.Equal(t, audio.NoSession, st.SessionID)
}

func TestSessionExplicitPath(t *testing.T) {
	s := newTestSession(t, audiotest.NewSource(320))
	want := filepath.Join(t.TempDir(), "take1.wav")

	path, err := s.Start(want)
	require.NoError(t, err)
	assert.Equal(t, want, path)

	_, err = s.Start(want)
	assert.ErrorIs(t, err, recorder.ErrInvalidState)

	_, err = s.Stop()
	require.NoError(t, err)
	_, err = s.Stop()
	assert.ErrorIs(t, err, recorder.ErrInvalidState)
}

func TestSessionReportsFatalErrors(t *testing.T) {
	src := audiotest.NewSource(320)
	src.PushError(errors.New("device lost"))
	s := newTestSession(t, src)

	_, err := s.Start("")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Status().LastError != "" }, waitFor, time.Millisecond)
	assert.Contains(t, s.Status().LastError, "device lost")
	assert.Equal(t, "stopped", s.Status().State)
}

func TestRunnerStopsAfterDuration(t *testing.T) {
	src := audiotest.NewSource(3200)
	src.Push(silence(3200), silence(3200), silence(3200))
	s := newTestSession(t, src)

	var buf bytes.Buffer
	formatter := output.NewJSONFormatter(&buf)
	target := filepath.Join(t.TempDir(), "out.wav")
	runner := NewRunner(RunnerConfig{Path: target, Duration: 200 * time.Millisecond}, s, nil, formatter, zaptest.NewLogger(t))

	path, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, target, path)

	info, err := wave.Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, int64(9600), info.DataSize)

	counts := formatter.Counts()
	assert.Equal(t, 3, counts[output.EventAmplitude])
	assert.Equal(t, 1, counts[output.EventSaved])

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var last output.Event
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, output.EventSaved, last.Type)
	assert.Equal(t, target, last.Path)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	s := newTestSession(t, audiotest.NewSource(320))

	var out bytes.Buffer
	console := output.NewConsoleOutput(output.ConsoleConfig{Writer: &out, ErrWriter: &out})
	runner := NewRunner(RunnerConfig{}, s, console, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Eventually(t, func() bool { return s.Recorder().State() == recorder.Recording }, waitFor, time.Millisecond)
		cancel()
	}()

	path, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saved "+path)
	assert.Equal(t, recorder.Stopped, s.Recorder().State())
}

func TestRunnerReturnsFatalError(t *testing.T) {
	src := audiotest.NewSource(320)
	src.Push(silence(320))
	src.PushError(errors.New("device lost"))
	s := newTestSession(t, src)

	var out bytes.Buffer
	console := output.NewConsoleOutput(output.ConsoleConfig{Writer: &out, ErrWriter: &out})
	runner := NewRunner(RunnerConfig{Path: filepath.Join(t.TempDir(), "x.wav")}, s, console, nil, zaptest.NewLogger(t))

	_, err := runner.Run(context.Background())
	var deviceErr *recorder.DeviceError
	require.ErrorAs(t, err, &deviceErr)
	assert.Contains(t, out.String(), "[ERROR]")
}

func silence(n int) []byte {
	return make([]byte, n)
}
