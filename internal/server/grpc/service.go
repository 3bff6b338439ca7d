// Package grpc exposes a recording Session as the voxrec.v1.Recorder gRPC
// service. Messages are protobuf well-known types so no generated code is
// needed; the service descriptor below plays the role of the generated one.
package grpc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/emmett/voxrec/internal/app"
	"github.com/emmett/voxrec/internal/output"
	"github.com/emmett/voxrec/internal/recorder"
	"github.com/emmett/voxrec/internal/wave"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "voxrec.v1.Recorder"

const telemetryBuffer = 64

// RecorderServer is the server API for the Recorder service
type RecorderServer interface {
	// Start begins a recording. The request may carry a "path" string; the
	// response is the path being written.
	Start(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Pause(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Resume(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// Stop finalizes the recording and returns its path
	Stop(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Telemetry streams state, amplitude, elapsed and error events until the
	// client goes away
	Telemetry(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterRecorderServer registers srv on s
func RegisterRecorderServer(s grpc.ServiceRegistrar, srv RecorderServer) {
	s.RegisterService(&RecorderServiceDesc, srv)
}

// RecorderServiceDesc describes the Recorder service
var RecorderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecorderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Start", Handler: unaryHandler("Start", RecorderServer.Start)},
		{MethodName: "Pause", Handler: unaryHandler("Pause", RecorderServer.Pause)},
		{MethodName: "Resume", Handler: unaryHandler("Resume", RecorderServer.Resume)},
		{MethodName: "Stop", Handler: unaryHandler("Stop", RecorderServer.Stop)},
		{MethodName: "Status", Handler: unaryHandler("Status", RecorderServer.Status)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Telemetry",
			Handler:       telemetryHandler,
			ServerStreams: true,
		},
	},
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryHandler[Req, Res any](name string, call func(RecorderServer, context.Context, *Req) (*Res, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecorderServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecorderServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func telemetryHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RecorderServer).Telemetry(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// Service implements RecorderServer on top of an app.Session
type Service struct {
	session *app.Session
	logger  *zap.Logger
}

// NewService creates the Recorder service
func NewService(session *app.Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{session: session, logger: logger}
}

func (s *Service) Start(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	path := req.GetFields()["path"].GetStringValue()
	name, err := s.session.Start(path)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(name), nil
}

func (s *Service) Pause(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.session.Pause(); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Service) Resume(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.session.Resume(); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Service) Stop(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	path, err := s.session.Stop()
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(path), nil
}

func (s *Service) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	st := s.session.Status()
	out, err := structpb.NewStruct(map[string]any{
		"state":             st.State,
		"path":              st.Path,
		"session_id":        st.SessionID,
		"elapsed":           st.Elapsed,
		"peak":              st.Peak,
		"level":             st.Level,
		"format":            st.Format,
		"noise_suppression": st.NoiseSuppression,
		"last_error":        st.LastError,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode status: %v", err)
	}
	return out, nil
}

func (s *Service) Telemetry(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	events, cancel := s.session.Hub().Subscribe(telemetryBuffer)
	defer cancel()

	ctx := stream.Context()
	s.logger.Debug("telemetry subscriber connected")
	defer s.logger.Debug("telemetry subscriber gone")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := stream.Send(eventToStruct(ev)); err != nil {
				return err
			}
		}
	}
}

func eventToStruct(ev output.Event) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"type":      structpb.NewStringValue(ev.Type),
		"timestamp": structpb.NewStringValue(ev.Timestamp.Format(time.RFC3339Nano)),
	}
	if ev.State != "" {
		fields["state"] = structpb.NewStringValue(ev.State)
	}
	if ev.Previous != "" {
		fields["previous"] = structpb.NewStringValue(ev.Previous)
	}
	if ev.Peak != nil {
		fields["peak"] = structpb.NewNumberValue(float64(*ev.Peak))
	}
	if ev.Elapsed != nil {
		fields["elapsed"] = structpb.NewNumberValue(float64(*ev.Elapsed))
	}
	if ev.Path != "" {
		fields["path"] = structpb.NewStringValue(ev.Path)
	}
	if ev.Message != "" {
		fields["message"] = structpb.NewStringValue(ev.Message)
	}
	return &structpb.Struct{Fields: fields}
}

// toStatus maps recorder errors onto gRPC status codes
func toStatus(err error) error {
	var (
		deviceErr  *recorder.DeviceError
		storageErr *recorder.StorageError
	)
	switch {
	case errors.Is(err, recorder.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &deviceErr):
		return status.Error(codes.Unavailable, err.Error())
	case errors.As(err, &storageErr), errors.Is(err, wave.ErrHeaderFinalization):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}
