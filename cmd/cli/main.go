package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/app"
	"github.com/emmett/voxrec/internal/config"
	"github.com/emmett/voxrec/internal/logging"
	"github.com/emmett/voxrec/internal/output"
	"github.com/emmett/voxrec/internal/wave"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile       = flag.String("config", "", "Path to configuration file (default: ~/.voxrecrc or /etc/voxrec/config.yaml)")
	outputFile       = flag.String("output", "", "WAV file to record to (default: a new file in the recordings directory)")
	outputFormat     = flag.String("format", "console", "Telemetry format: console, json, text")
	sampleRate       = flag.Uint("sample-rate", 16000, "Sample rate in Hz")
	channels         = flag.Uint("channels", 1, "Channels: 1 (mono) or 2 (stereo)")
	bitDepth         = flag.Uint("bit-depth", 16, "Bits per sample: 8, 16 or 32")
	noiseSuppression = flag.Bool("noise-suppression", false, "Request platform noise suppression when available")
	hotkeyCombo      = flag.String("hotkey", "", "Global hotkey toggling pause/resume, e.g. ctrl+shift+p")
	duration         = flag.Duration("duration", 0, "Stop automatically after this long (0 = until Ctrl+C)")
	inspectFile      = flag.String("inspect", "", "Decode a WAV file and print its format, then exit")
	logLevel         = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	showVersion      = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	applyFlags(cfg)

	if *showVersion {
		fmt.Printf("Voxrec CLI v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *inspectFile != "" {
		info, err := wave.Inspect(*inspectFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(info)
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags override the loaded configuration,
// and lets the configuration fill in flags left at their defaults
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["format"] || cfg.Output.Format == "" {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["sample-rate"] {
		cfg.Audio.Format.SampleRate = uint32(*sampleRate)
	}
	if flagsSet["channels"] {
		cfg.Audio.Format.Channels = wave.ChannelMask(*channels)
	}
	if flagsSet["bit-depth"] {
		cfg.Audio.Format.BitDepth = uint16(*bitDepth)
	}
	if flagsSet["noise-suppression"] {
		cfg.Audio.NoiseSuppression = *noiseSuppression
	}
	if flagsSet["hotkey"] || cfg.Input.Hotkey == "" {
		cfg.Input.Hotkey = *hotkeyCombo
	}
	if flagsSet["log-level"] || *configFile == "" {
		cfg.Log.Level = *logLevel
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rec, err := app.NewRecorder(cfg, logger)
	if err != nil {
		return err
	}
	if err := rec.Prepare(); err != nil {
		return err
	}
	session := app.NewSession(rec, cfg.Storage.SandboxDir, logger)

	var formatter output.Formatter
	console := output.NewConsoleOutput(output.ConsoleConfig{ShowTimestamp: false})
	if cfg.Output.Format != "console" {
		formatter, err = output.NewFormatter(cfg.Output.Format, os.Stdout)
		if err != nil {
			return err
		}
		defer formatter.Close()
		// keep stdout clean for machine-readable events
		console = output.NewConsoleOutput(output.ConsoleConfig{Writer: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := app.NewRunner(app.RunnerConfig{
		Path:     *outputFile,
		Hotkey:   cfg.Input.Hotkey,
		Duration: *duration,
	}, session, console, formatter, logger)

	start := time.Now()
	path, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("recording finished", zap.String("path", path), zap.Duration("wall_time", time.Since(start)))
	return nil
}
