package audio

import (
	"errors"
	"sync"
)

// ErrBufferFull is returned by RingBuffer.Write when data had to be dropped
var ErrBufferFull = errors.New("ring buffer is full")

// RingBuffer is a circular byte buffer between the device callback and the
// capture loop. It is safe for one writer and one reader.
type RingBuffer struct {
	mu       sync.Mutex
	buffer   []byte
	readPos  int
	length   int
	overflow uint64
}

// NewRingBuffer creates a new ring buffer with the specified size in bytes
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{buffer: make([]byte, size)}
}

// Write appends as much of data as fits. Bytes that do not fit are dropped,
// counted, and reported with ErrBufferFull.
func (rb *RingBuffer) Write(data []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	size := len(rb.buffer)
	n := len(data)
	if free := size - rb.length; n > free {
		n = free
	}

	writePos := (rb.readPos + rb.length) % size
	first := copy(rb.buffer[writePos:], data[:n])
	copy(rb.buffer, data[first:n])
	rb.length += n

	if dropped := len(data) - n; dropped > 0 {
		rb.overflow += uint64(dropped)
		return n, ErrBufferFull
	}
	return n, nil
}

// Read reads up to len(data) bytes and returns the number read
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(data)
	if n > rb.length {
		n = rb.length
	}
	first := copy(data[:n], rb.buffer[rb.readPos:])
	copy(data[first:n], rb.buffer)
	rb.readPos = (rb.readPos + n) % len(rb.buffer)
	rb.length -= n
	return n
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.length
}

// Free returns the number of bytes available to write
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.buffer) - rb.length
}

// Overflow returns the total number of bytes dropped by Write
func (rb *RingBuffer) Overflow() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.overflow
}

// Reset clears the buffer
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.length = 0
}

// Size returns the total size of the buffer
func (rb *RingBuffer) Size() int {
	return len(rb.buffer)
}
