package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{-3, "00:00"},
		{59, "00:59"},
		{61, "01:01"},
		{3599, "59:59"},
		{3661, "1:01:01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatElapsed(tt.seconds))
	}
}

func TestConsoleMeter(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &out, ErrWriter: &errOut})

	require.NoError(t, c.WriteState("recording"))
	require.NoError(t, c.WriteElapsed(65))
	require.NoError(t, c.WriteAudioLevel(0.5))

	lines := strings.Split(out.String(), "\r")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "recording")
	assert.Contains(t, last, "01:05")
	assert.Contains(t, last, strings.Repeat("=", meterWidth/2)+" ")
	assert.Contains(t, last, "50.0%")

	require.NoError(t, c.WriteAudioLevel(3))
	assert.Contains(t, out.String(), "100.0%")

	c.Error("boom")
	assert.Equal(t, "[ERROR] boom\n", errOut.String())
	c.Info("saved")
	assert.True(t, strings.HasSuffix(out.String(), "[INFO] saved\n"))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &buf)
	require.NoError(t, err)

	require.NoError(t, f.WriteEvent(StateEvent("stopped", "recording")))
	require.NoError(t, f.WriteEvent(AmplitudeEvent(0)))
	require.NoError(t, f.WriteEvent(ElapsedEvent(2)))
	require.NoError(t, f.WriteEvent(ErrorEvent(errors.New("disk full"))))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var amp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &amp))
	assert.Equal(t, "amplitude", amp["type"])
	// a zero peak is still reported
	assert.Equal(t, float64(0), amp["peak"])

	var state Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &state))
	assert.Equal(t, "stopped", state.Previous)
	assert.Equal(t, "recording", state.State)

	counts := f.(*JSONFormatter).Counts()
	assert.Equal(t, 1, counts[EventAmplitude])
	assert.Equal(t, 1, counts[EventError])
}

func TestPlainTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("text", &buf)
	require.NoError(t, err)

	require.NoError(t, f.WriteEvent(AmplitudeEvent(100)))
	assert.Empty(t, buf.String())

	require.NoError(t, f.WriteEvent(StateEvent("recording", "paused")))
	require.NoError(t, f.WriteEvent(ElapsedEvent(75)))
	require.NoError(t, f.WriteEvent(SavedEvent("/tmp/a.wav")))

	out := buf.String()
	assert.Contains(t, out, "[state] recording -> paused\n")
	assert.Contains(t, out, "[elapsed] 01:15\n")
	assert.Contains(t, out, "[saved] /tmp/a.wav\n")
}

func TestNewFormatterRejectsConsole(t *testing.T) {
	_, err := NewFormatter("console", &bytes.Buffer{})
	assert.Error(t, err)
}
