package recorder

import "fmt"

// State is the lifecycle state of a Recorder
type State int32

const (
	Stopped State = iota
	Recording
	Paused
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Active reports whether a capture episode is running
func (s State) Active() bool {
	return s == Recording || s == Paused
}
