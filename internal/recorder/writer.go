package recorder

import (
	"errors"

	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/analyzer"
	"github.com/emmett/voxrec/internal/audio"
)

// capture is the episode's reader/writer loop. It exits when stop is closed
// or on the first fatal error, which it leaves in ep.err.
func (r *Recorder) capture(ep *episode) {
	defer close(ep.done)
	defer func() {
		if err := ep.sink.Close(); err != nil && ep.err == nil {
			ep.err = &StorageError{Op: "close", Path: ep.target.Name(), Err: err}
		}
	}()

	bitDepth := int(ep.config.BitDepth)
	buf := make([]byte, ep.source.ChunkSize())

	for {
		select {
		case <-ep.stop:
			return
		default:
		}

		n, err := ep.source.Read(buf)
		if err != nil {
			if errors.Is(err, audio.ErrInvalidOperation) {
				ep.skipped++
				continue
			}
			select {
			case <-ep.stop:
				// the read raced with Stop
				return
			default:
			}
			ep.err = &DeviceError{Op: "read", Err: err}
			r.logger.Error("audio read failed", zap.Error(err))
			return
		}
		if n == 0 {
			continue
		}
		chunk := buf[:n]

		if r.State() != Paused {
			if _, err := ep.sink.Write(chunk); err != nil {
				ep.err = &StorageError{Op: "write", Path: ep.target.Name(), Err: err}
				r.logger.Error("audio write failed", zap.String("path", ep.target.Name()), zap.Error(err))
				return
			}
			ep.written += int64(n)
		}

		peak := analyzer.Peak(chunk, bitDepth)
		elapsed := int(ep.written / ep.byteRate)
		ep.notify.post(func() {
			r.emitTelemetry(peak, elapsed)
		})
	}
}

func (r *Recorder) emitTelemetry(peak, elapsed int) {
	r.listenerMu.RLock()
	onAmplitude, onElapsed := r.onAmplitude, r.onElapsed
	r.listenerMu.RUnlock()

	if onAmplitude != nil {
		onAmplitude(peak)
	}
	if onElapsed != nil {
		onElapsed(elapsed)
	}
}
