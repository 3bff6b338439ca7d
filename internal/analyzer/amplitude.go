// Package analyzer derives per-chunk amplitude readings from raw PCM bytes.
// Every function is stateless; nothing is carried from one chunk to the next.
package analyzer

import (
	"encoding/binary"
	"math"
)

// Peak returns the largest absolute sample value in chunk, or 0 for an empty
// chunk. Samples are little-endian: 16- and 32-bit are signed, 8-bit is
// unsigned and centered on 128. Trailing bytes that do not make up a whole
// sample are ignored.
func Peak(chunk []byte, bitDepth int) int {
	peak := 0
	forEachSample(chunk, bitDepth, func(s int) {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	})
	return peak
}

// MaxAmplitude returns the largest absolute value representable at bitDepth
func MaxAmplitude(bitDepth int) int {
	switch bitDepth {
	case 8:
		return 128
	case 32:
		return math.MaxInt32 + 1
	default:
		return math.MaxInt16 + 1
	}
}

// Level normalizes a peak to the range 0.0 to 1.0 for meters
func Level(peak, bitDepth int) float64 {
	level := float64(peak) / float64(MaxAmplitude(bitDepth))
	if level > 1 {
		return 1
	}
	return level
}

func forEachSample(chunk []byte, bitDepth int, fn func(int)) {
	switch bitDepth {
	case 8:
		for _, b := range chunk {
			fn(int(b) - 128)
		}
	case 32:
		for i := 0; i+4 <= len(chunk); i += 4 {
			fn(int(int32(binary.LittleEndian.Uint32(chunk[i:]))))
		}
	default:
		for i := 0; i+2 <= len(chunk); i += 2 {
			fn(int(int16(binary.LittleEndian.Uint16(chunk[i:]))))
		}
	}
}
