// Package mcp exposes recording controls as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/app"
)

type Config struct {
	ServerName    string
	ServerVersion string
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	session   *app.Session
	logger    *zap.Logger
}

func NewServer(cfg Config, session *app.Session, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:  cfg,
		session: session,
		logger:  logger,
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s
}

// Run serves on stdin/stdout until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// Stop saves any recording still in progress
func (s *Server) Stop() error {
	if !s.session.Recorder().State().Active() {
		return nil
	}
	path, err := s.session.Stop()
	if err != nil {
		return err
	}
	s.logger.Info("recording saved on shutdown", zap.String("path", path))
	return nil
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "start_recording",
		Description: "Start recording the microphone to a WAV file. Omit path to record into the private recordings directory.",
	}, s.handleStart)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "pause_recording",
		Description: "Pause the current recording. Audio captured while paused is discarded.",
	}, s.handlePause)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "resume_recording",
		Description: "Resume a paused recording",
	}, s.handleResume)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop_recording",
		Description: "Stop the current recording, finalize the WAV header and return the file path",
	}, s.handleStop)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "recording_status",
		Description: "Report the recorder state, elapsed seconds and latest peak amplitude",
	}, s.handleStatus)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "inspect_recording",
		Description: "Decode a finished WAV file and report its format, duration and peak",
	}, s.handleInspect)
}
