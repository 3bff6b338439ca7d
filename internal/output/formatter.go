package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Event types written by a Formatter
const (
	EventState     = "state"
	EventAmplitude = "amplitude"
	EventElapsed   = "elapsed"
	EventError     = "error"
	EventSaved     = "saved"
)

// Event is one line of machine-readable recorder telemetry
type Event struct {
	Type      string    `json:"type"`
	State     string    `json:"state,omitempty"`
	Previous  string    `json:"previous,omitempty"`
	Peak      *int      `json:"peak,omitempty"`
	Elapsed   *int      `json:"elapsed,omitempty"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StateEvent reports a lifecycle transition
func StateEvent(previous, state string) Event {
	return Event{Type: EventState, Previous: previous, State: state, Timestamp: time.Now()}
}

// AmplitudeEvent reports the peak of one chunk
func AmplitudeEvent(peak int) Event {
	return Event{Type: EventAmplitude, Peak: &peak, Timestamp: time.Now()}
}

// ElapsedEvent reports the recorded duration in whole seconds
func ElapsedEvent(seconds int) Event {
	return Event{Type: EventElapsed, Elapsed: &seconds, Timestamp: time.Now()}
}

// ErrorEvent reports a fatal recording error
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Message: err.Error(), Timestamp: time.Now()}
}

// SavedEvent reports the finished file
func SavedEvent(path string) Event {
	return Event{Type: EventSaved, Path: path, Timestamp: time.Now()}
}

// Formatter is the interface for telemetry output formatters
type Formatter interface {
	// WriteEvent writes one event
	WriteEvent(event Event) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter returns the formatter for a configured output format.
// "console" is not a Formatter; callers use ConsoleOutput for it.
func NewFormatter(format string, writer io.Writer) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(writer), nil
	case "text":
		return NewPlainTextFormatter(writer), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// JSONFormatter writes one JSON object per line
type JSONFormatter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	counts  map[string]int
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{
		encoder: json.NewEncoder(writer),
		counts:  make(map[string]int),
	}
}

// WriteEvent encodes the event as a single line
func (j *JSONFormatter) WriteEvent(event Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.counts[event.Type]++
	return j.encoder.Encode(event)
}

// Counts returns how many events of each type were written
func (j *JSONFormatter) Counts() map[string]int {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[string]int, len(j.counts))
	for k, v := range j.counts {
		out[k] = v
	}
	return out
}

// Flush is a no-op; the encoder writes immediately
func (j *JSONFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// PlainTextFormatter writes human-readable lines. Amplitude events are
// skipped since they arrive once per chunk.
type PlainTextFormatter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteEvent writes the event as one line
func (p *PlainTextFormatter) WriteEvent(event Event) error {
	var text string
	switch event.Type {
	case EventAmplitude:
		return nil
	case EventState:
		text = fmt.Sprintf("%s -> %s", event.Previous, event.State)
	case EventElapsed:
		text = FormatElapsed(derefInt(event.Elapsed))
	case EventSaved:
		text = event.Path
	default:
		text = event.Message
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	timestamp := event.Timestamp.Format("15:04:05")
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", timestamp, event.Type, text)
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
