package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/app"
	"github.com/emmett/voxrec/internal/config"
	"github.com/emmett/voxrec/internal/logging"
	"github.com/emmett/voxrec/internal/server/mcp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.voxrecrc or /etc/voxrec/config.yaml)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Voxrec MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		return err
	}

	// stdout carries the protocol; logging.New writes to stderr or a file
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rec, err := app.NewRecorder(cfg, logger)
	if err != nil {
		return err
	}
	session := app.NewSession(rec, cfg.Storage.SandboxDir, logger)

	server := mcp.NewServer(mcp.Config{
		ServerName:    "voxrec",
		ServerVersion: Version,
	}, session, logger.Named("mcp"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server ready on stdio", zap.String("version", Version), zap.String("commit", GitCommit))
	runErr := server.Run(ctx)
	if err := server.Stop(); err != nil {
		logger.Error("failed to save recording", zap.Error(err))
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
