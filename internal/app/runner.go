package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/analyzer"
	"github.com/emmett/voxrec/internal/input"
	"github.com/emmett/voxrec/internal/output"
	"github.com/emmett/voxrec/internal/recorder"
)

// RunnerConfig holds the options of one interactive recording
type RunnerConfig struct {
	// Path is the output file; empty records into the sandbox
	Path string

	// Hotkey toggles pause/resume when set
	Hotkey string

	// Duration stops the recording automatically when positive
	Duration time.Duration
}

// Runner drives a single recording from the command line, rendering
// telemetry either on the console meter or through a Formatter
type Runner struct {
	config    RunnerConfig
	session   *Session
	console   *output.ConsoleOutput
	formatter output.Formatter
	logger    *zap.Logger
}

// NewRunner creates a Runner. A nil formatter selects the console meter.
func NewRunner(config RunnerConfig, session *Session, console *output.ConsoleOutput, formatter output.Formatter, logger *zap.Logger) *Runner {
	if console == nil {
		console = output.DefaultConsoleOutput()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		config:    config,
		session:   session,
		console:   console,
		formatter: formatter,
		logger:    logger,
	}
}

// Run records until ctx is done, the duration elapses or the recording fails.
// It returns the path of the finished file.
func (r *Runner) Run(ctx context.Context) (string, error) {
	events, unsubscribe := r.session.Hub().Subscribe(256)
	defer unsubscribe()

	path, err := r.session.Start(r.config.Path)
	if err != nil {
		return "", fmt.Errorf("failed to start recording: %w", err)
	}
	r.info(fmt.Sprintf("Recording to %s (%s)", path, r.session.Recorder().Config()))

	if r.config.Hotkey != "" {
		hk := input.NewHotkeyManager(func() {
			if err := r.session.Toggle(); err != nil {
				r.logger.Warn("hotkey toggle ignored", zap.Error(err))
			}
		})
		if err := hk.Start(ctx, r.config.Hotkey); err != nil {
			r.logger.Warn("hotkey unavailable", zap.String("hotkey", r.config.Hotkey), zap.Error(err))
		} else {
			defer hk.Stop()
			r.info(fmt.Sprintf("Press %s to pause or resume.", r.config.Hotkey))
		}
	}
	r.info("Press Ctrl+C to stop.")

	var deadline <-chan time.Time
	if r.config.Duration > 0 {
		timer := time.NewTimer(r.config.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return r.finish(events, unsubscribe)
		case <-deadline:
			return r.finish(events, unsubscribe)
		case ev := <-events:
			r.render(ev)
			if ev.Type == output.EventError {
				r.drain(events, unsubscribe)
				return path, r.session.Recorder().Err()
			}
		}
	}
}

func (r *Runner) finish(events <-chan output.Event, unsubscribe func()) (string, error) {
	path, err := r.session.Stop()
	r.drain(events, unsubscribe)
	if r.formatter == nil {
		_ = r.console.Clear()
	}
	if errors.Is(err, recorder.ErrInvalidState) {
		// a fatal error stopped the recording first
		if cause := r.session.Recorder().Err(); cause != nil {
			return path, cause
		}
	}
	if err != nil {
		return path, fmt.Errorf("failed to stop recording: %w", err)
	}
	r.info("Saved " + path)
	return path, nil
}

// drain renders whatever was published before the subscription ends
func (r *Runner) drain(events <-chan output.Event, unsubscribe func()) {
	unsubscribe()
	for ev := range events {
		r.render(ev)
	}
	if r.formatter != nil {
		if err := r.formatter.Flush(); err != nil {
			r.logger.Warn("failed to flush output", zap.Error(err))
		}
	}
}

func (r *Runner) render(ev output.Event) {
	if r.formatter != nil {
		if err := r.formatter.WriteEvent(ev); err != nil {
			r.logger.Warn("failed to write event", zap.String("type", ev.Type), zap.Error(err))
		}
		return
	}

	var err error
	switch ev.Type {
	case output.EventState:
		err = r.console.WriteState(ev.State)
	case output.EventAmplitude:
		bitDepth := int(r.session.Recorder().Config().BitDepth)
		err = r.console.WriteAudioLevel(analyzer.Level(derefInt(ev.Peak), bitDepth))
	case output.EventElapsed:
		err = r.console.WriteElapsed(derefInt(ev.Elapsed))
	case output.EventError:
		_ = r.console.Clear()
		r.console.Error(ev.Message)
	}
	if err != nil {
		r.logger.Debug("console write failed", zap.Error(err))
	}
}

func (r *Runner) info(msg string) {
	if r.formatter == nil {
		r.console.Info(msg)
		return
	}
	r.logger.Info(msg)
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
