package wave

import "errors"

// ErrHeaderFinalization matches every *HeaderFinalizationError
var ErrHeaderFinalization = errors.New("wave header finalization failed")

// HeaderFinalizationError reports a file whose header could not be patched.
// The file is left untouched so it can be inspected or recovered.
type HeaderFinalizationError struct {
	Reason string
	Err    error
}

func finalizationError(reason string, err error) *HeaderFinalizationError {
	return &HeaderFinalizationError{Reason: reason, Err: err}
}

func (e *HeaderFinalizationError) Error() string {
	if e.Err != nil {
		return ErrHeaderFinalization.Error() + ": " + e.Reason + ": " + e.Err.Error()
	}
	return ErrHeaderFinalization.Error() + ": " + e.Reason
}

func (e *HeaderFinalizationError) Unwrap() error { return e.Err }

// Is reports ErrHeaderFinalization as a match
func (e *HeaderFinalizationError) Is(target error) bool {
	return target == ErrHeaderFinalization
}
