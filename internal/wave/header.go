package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the size of the canonical RIFF/WAVE header preceding the PCM payload
const HeaderSize = 44

const (
	riffChunkOverhead = 36 // RIFF size covers everything after offset 8 except the payload
	fmtChunkSize      = 16
	formatPCM         = 1
)

// Byte offsets of the header fields
const (
	offChunkID       = 0
	offChunkSize     = 4
	offFormat        = 8
	offFmtID         = 12
	offFmtSize       = 16
	offAudioFormat   = 20
	offNumChannels   = 22
	offSampleRate    = 24
	offByteRate      = 28
	offBlockAlign    = 32
	offBitsPerSample = 34
	offDataID        = 36
	offDataSize      = 40
)

// Header is the 44-byte RIFF/WAVE header of a single fmt+data file
type Header struct {
	ChunkSize     uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// NewHeader builds the header for cfg with dataSize payload bytes
func NewHeader(cfg Config, dataSize uint32) Header {
	return Header{
		ChunkSize:     riffChunkOverhead + dataSize,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(cfg.Channels),
		SampleRate:    cfg.SampleRate,
		ByteRate:      uint32(cfg.ByteRate()),
		BlockAlign:    uint16(cfg.BlockAlign()),
		BitsPerSample: cfg.BitDepth,
		DataSize:      dataSize,
	}
}

// Config returns the PCM format described by the header
func (h Header) Config() Config {
	return Config{
		SampleRate: h.SampleRate,
		Channels:   ChannelMask(h.NumChannels),
		BitDepth:   h.BitsPerSample,
	}
}

// MarshalBinary encodes the header in little-endian RIFF layout
func (h Header) MarshalBinary() ([]byte, error) {
	var b [HeaderSize]byte
	copy(b[offChunkID:], "RIFF")
	binary.LittleEndian.PutUint32(b[offChunkSize:], h.ChunkSize)
	copy(b[offFormat:], "WAVE")
	copy(b[offFmtID:], "fmt ")
	binary.LittleEndian.PutUint32(b[offFmtSize:], fmtChunkSize)
	binary.LittleEndian.PutUint16(b[offAudioFormat:], h.AudioFormat)
	binary.LittleEndian.PutUint16(b[offNumChannels:], h.NumChannels)
	binary.LittleEndian.PutUint32(b[offSampleRate:], h.SampleRate)
	binary.LittleEndian.PutUint32(b[offByteRate:], h.ByteRate)
	binary.LittleEndian.PutUint16(b[offBlockAlign:], h.BlockAlign)
	binary.LittleEndian.PutUint16(b[offBitsPerSample:], h.BitsPerSample)
	copy(b[offDataID:], "data")
	binary.LittleEndian.PutUint32(b[offDataSize:], h.DataSize)
	return b[:], nil
}

// ParseHeader decodes the first 44 bytes of b
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("header needs %d bytes, got %d", HeaderSize, len(b))
	}
	if err := checkMagic(b); err != nil {
		return Header{}, err
	}
	if string(b[offFmtID:offFmtID+4]) != "fmt " || string(b[offDataID:offDataID+4]) != "data" {
		return Header{}, errors.New("unsupported chunk layout: expected fmt followed by data")
	}
	return Header{
		ChunkSize:     binary.LittleEndian.Uint32(b[offChunkSize:]),
		AudioFormat:   binary.LittleEndian.Uint16(b[offAudioFormat:]),
		NumChannels:   binary.LittleEndian.Uint16(b[offNumChannels:]),
		SampleRate:    binary.LittleEndian.Uint32(b[offSampleRate:]),
		ByteRate:      binary.LittleEndian.Uint32(b[offByteRate:]),
		BlockAlign:    binary.LittleEndian.Uint16(b[offBlockAlign:]),
		BitsPerSample: binary.LittleEndian.Uint16(b[offBitsPerSample:]),
		DataSize:      binary.LittleEndian.Uint32(b[offDataSize:]),
	}, nil
}

func checkMagic(b []byte) error {
	if string(b[offChunkID:offChunkID+4]) != "RIFF" || string(b[offFormat:offFormat+4]) != "WAVE" {
		return errors.New("missing RIFF/WAVE magic")
	}
	return nil
}

// WriteHeader writes a header for cfg. Pass dataSize=0 for the provisional
// header written when the stream opens; Finalize patches it later.
func WriteHeader(w io.Writer, cfg Config, dataSize uint32) error {
	b, _ := NewHeader(cfg, dataSize).MarshalBinary()
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("failed to write wave header: %w", err)
	}
	return nil
}

// Finalize patches the size fields of a file that holds a provisional header
// followed by raw PCM. The whole header is rewritten in place from cfg; the
// payload is neither moved nor truncated. On error the file is left as-is.
func Finalize(f io.ReadWriteSeeker, cfg Config) (Header, error) {
	length, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return Header{}, finalizationError("failed to measure file", err)
	}
	if length < HeaderSize {
		return Header{}, finalizationError(fmt.Sprintf("file is %d bytes, shorter than the %d byte header", length, HeaderSize), nil)
	}
	dataSize := length - HeaderSize
	if dataSize > math.MaxUint32-riffChunkOverhead {
		return Header{}, finalizationError(fmt.Sprintf("payload of %d bytes does not fit a RIFF size field", dataSize), nil)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Header{}, finalizationError("failed to seek to header", err)
	}
	var current [HeaderSize]byte
	if _, err := io.ReadFull(f, current[:]); err != nil {
		return Header{}, finalizationError("failed to read header", err)
	}
	if err := checkMagic(current[:]); err != nil {
		return Header{}, finalizationError("not a provisional wave file", err)
	}

	h := NewHeader(cfg, uint32(dataSize))
	b, _ := h.MarshalBinary()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Header{}, finalizationError("failed to seek to header", err)
	}
	if _, err := f.Write(b); err != nil {
		return Header{}, finalizationError("failed to write header", err)
	}
	return h, nil
}
