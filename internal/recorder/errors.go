package recorder

import (
	"errors"
	"fmt"

	"github.com/emmett/voxrec/internal/audio"
)

// ErrInvalidState matches every *InvalidStateError
var ErrInvalidState = errors.New("invalid recorder state")

// ErrDeviceRead is the transient read failure the capture loop absorbs
var ErrDeviceRead = audio.ErrInvalidOperation

// InvalidStateError is returned when an operation is not legal in the current state.
// The state is left unchanged.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// Is reports ErrInvalidState as a match
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// StorageError is a fatal failure of the output file
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DeviceError is a failure to open, start or read the audio source that is not transient
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: failed to %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
