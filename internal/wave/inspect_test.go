package wave

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectFinalizedRecording(t *testing.T) {
	cfg := DefaultConfig()
	samples := []int16{0, 1000, -2000, 500}
	payload := make([]byte, 0, 32000)
	for len(payload) < 32000 {
		for _, s := range samples {
			payload = binary.LittleEndian.AppendUint16(payload, uint16(s))
		}
	}
	path := writeProvisional(t, cfg, payload)
	_, err := finalizeFile(t, path, cfg)
	require.NoError(t, err)

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, info.Config)
	assert.Equal(t, int64(32000), info.DataSize)
	assert.Equal(t, int64(16000), info.Frames)
	assert.Equal(t, time.Second, info.Duration)
	assert.Equal(t, 2000, info.Peak)
}

func TestInspectEmptyRecording(t *testing.T) {
	cfg := DefaultConfig()
	path := writeProvisional(t, cfg, nil)
	_, err := finalizeFile(t, path, cfg)
	require.NoError(t, err)

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Zero(t, info.DataSize)
	assert.Zero(t, info.Peak)
}
