package wave

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Info summarizes a finished recording as seen by a standard WAVE decoder
type Info struct {
	Path     string
	Config   Config
	DataSize int64
	Frames   int64
	Duration time.Duration
	Peak     int
}

// String returns a one-line summary of the recording
func (i Info) String() string {
	return fmt.Sprintf("%s: %s, %d bytes, %d frames, %s, peak %d",
		i.Path, i.Config, i.DataSize, i.Frames, i.Duration.Round(time.Millisecond), i.Peak)
}

// Inspect decodes the file at path with go-audio/wav, independently of the
// code that wrote it, and reports its format, length and peak sample.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("%s is not a valid wave file", path)
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("failed to locate PCM data: %w", err)
	}
	if d.WavAudioFormat != formatPCM {
		return Info{}, fmt.Errorf("unsupported wave format tag %d", d.WavAudioFormat)
	}

	info := Info{
		Path: path,
		Config: Config{
			SampleRate: d.SampleRate,
			Channels:   ChannelMask(d.NumChans),
			BitDepth:   d.BitDepth,
		},
		DataSize: d.PCMLen(),
	}
	if blockAlign := int64(info.Config.BlockAlign()); blockAlign > 0 {
		info.Frames = info.DataSize / blockAlign
	}
	if info.Config.SampleRate > 0 {
		info.Duration = time.Duration(info.Frames) * time.Second / time.Duration(info.Config.SampleRate)
	}

	if info.DataSize > 0 {
		buf, err := d.FullPCMBuffer()
		if err != nil {
			return Info{}, fmt.Errorf("failed to decode PCM data: %w", err)
		}
		info.Peak = peakOf(buf, int(d.BitDepth))
	}
	return info, nil
}

// peakOf returns the largest absolute sample of a decoded buffer. 8-bit
// samples come back unsigned and are recentered on 128.
func peakOf(buf *audio.IntBuffer, bitDepth int) int {
	peak := 0
	for _, s := range buf.Data {
		if bitDepth == 8 {
			s -= 128
		}
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
