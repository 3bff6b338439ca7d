package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(8)

	n, err := rb.Write([]byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	out := make([]byte, 4)
	assert.Equal(t, 4, rb.Read(out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out)

	n, err = rb.Write([]byte{7, 8, 9, 10, 11})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 7, rb.Available())
	assert.Equal(t, 1, rb.Free())

	out = make([]byte, 7)
	assert.Equal(t, 7, rb.Read(out))
	assert.Equal(t, []byte{5, 6, 7, 8, 9, 10, 11}, out)
	assert.Equal(t, 0, rb.Available())
}

func TestRingBufferOverflow(t *testing.T) {
	rb := NewRingBuffer(4)

	n, err := rb.Write([]byte{1, 2, 3, 4, 5, 6})
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(2), rb.Overflow())

	out := make([]byte, 10)
	assert.Equal(t, 4, rb.Read(out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out[:4])
}

func TestRingBufferReset(t *testing.T) {
	rb := NewRingBuffer(4)
	_, _ = rb.Write([]byte{1, 2})
	rb.Reset()
	assert.Equal(t, 0, rb.Available())
	assert.Equal(t, 4, rb.Free())
	assert.Equal(t, 4, rb.Size())
	assert.Equal(t, 0, rb.Read(make([]byte, 2)))
}
