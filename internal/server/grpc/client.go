package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a remote Recorder service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Start begins a recording at path, or in the server's sandbox when empty
func (c *Client) Start(ctx context.Context, path string, opts ...grpc.CallOption) (string, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if path != "" {
		in.Fields["path"] = structpb.NewStringValue(path)
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("Start"), in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Pause pauses the remote recording
func (c *Client) Pause(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("Pause"), &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

// Resume resumes the remote recording
func (c *Client) Resume(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("Resume"), &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

// Stop finalizes the remote recording and returns its path
func (c *Client) Stop(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("Stop"), &emptypb.Empty{}, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Status returns the remote status as a plain map
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Status"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// Telemetry opens the event stream
func (c *Client) Telemetry(ctx context.Context, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &RecorderServiceDesc.Streams[0], fullMethod("Telemetry"), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
