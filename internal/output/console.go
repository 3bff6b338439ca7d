package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const meterWidth = 40

// ConsoleOutput renders recorder telemetry for a terminal
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool

	// last values drawn on the meter line
	level   float64
	elapsed int
	state   string
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes info and error lines with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives error lines (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
		state:         "stopped",
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true})
}

// WriteAudioLevel redraws the meter with a normalized level between 0 and 1
func (c *ConsoleOutput) WriteAudioLevel(level float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.level = min(max(level, 0), 1)
	return c.drawLocked()
}

// WriteElapsed redraws the meter with the recorded duration in seconds
func (c *ConsoleOutput) WriteElapsed(seconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.elapsed = seconds
	return c.drawLocked()
}

// WriteState redraws the meter with a new recorder state
func (c *ConsoleOutput) WriteState(state string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	return c.drawLocked()
}

func (c *ConsoleOutput) drawLocked() error {
	bar := strings.Repeat("=", int(c.level*meterWidth))
	_, err := fmt.Fprintf(c.writer, "\r%-9s %s [%-*s] %5.1f%%",
		c.state, FormatElapsed(c.elapsed), meterWidth, bar, c.level*100)
	return err
}

// Clear clears the meter line
func (c *ConsoleOutput) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.writer, "\r%80s\r", " ")
	return err
}

// Info writes an informational message on its own line
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "%s[INFO] %s\n", c.prefix(), msg)
}

// Error writes an error message to the error writer
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errWriter, "%s[ERROR] %s\n", c.prefix(), msg)
}

func (c *ConsoleOutput) prefix() string {
	if !c.showTimestamp {
		return ""
	}
	return "[" + time.Now().Format("15:04:05") + "] "
}

// FormatElapsed renders seconds as mm:ss, or h:mm:ss past an hour
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
