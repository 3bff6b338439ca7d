package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/emmett/voxrec/internal/wave"
)

type StartArgs struct {
	Path string `json:"path,omitempty" jsonschema:"Destination WAV file; its directory must exist"`
}

type InspectArgs struct {
	Path string `json:"path" jsonschema:"WAV file to inspect"`
}

type NoArgs struct{}

func (s *Server) handleStart(ctx context.Context, req *sdk.CallToolRequest, args StartArgs) (*sdk.CallToolResult, any, error) {
	path, err := s.session.Start(args.Path)
	if err != nil {
		return s.toolError("start_recording", err), nil, nil
	}
	return textResult(fmt.Sprintf("Recording to %s", path)), nil, nil
}

func (s *Server) handlePause(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, any, error) {
	if err := s.session.Pause(); err != nil {
		return s.toolError("pause_recording", err), nil, nil
	}
	return textResult("Recording paused"), nil, nil
}

func (s *Server) handleResume(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, any, error) {
	if err := s.session.Resume(); err != nil {
		return s.toolError("resume_recording", err), nil, nil
	}
	return textResult("Recording resumed"), nil, nil
}

func (s *Server) handleStop(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, any, error) {
	path, err := s.session.Stop()
	if err != nil {
		return s.toolError("stop_recording", err), nil, nil
	}
	return textResult(fmt.Sprintf("Saved %s", path)), nil, nil
}

func (s *Server) handleStatus(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, any, error) {
	data, err := json.Marshal(s.session.Status())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode status: %w", err)
	}
	return textResult(string(data)), nil, nil
}

func (s *Server) handleInspect(ctx context.Context, req *sdk.CallToolRequest, args InspectArgs) (*sdk.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("path is required"), nil, nil
	}
	info, err := wave.Inspect(args.Path)
	if err != nil {
		return s.toolError("inspect_recording", err), nil, nil
	}
	return textResult(info.String()), nil, nil
}

// toolError reports a failed operation to the client as a tool result so the
// model can see what went wrong
func (s *Server) toolError(tool string, err error) *sdk.CallToolResult {
	s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
	return errorResult(err.Error())
}

func errorResult(msg string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: msg}},
	}
}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}
