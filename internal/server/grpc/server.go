package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/emmett/voxrec/internal/app"
)

const shutdownGrace = 5 * time.Second

// Server wraps the gRPC server and services
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	session    *app.Session
	addr       string
	logger     *zap.Logger
}

// Config holds server configuration
type Config struct {
	Host string
	Port int
}

// Addr returns the listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// NewServer creates a gRPC server exposing session
func NewServer(cfg Config, session *app.Session, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		grpcServer: grpc.NewServer(
			grpc.ChainUnaryInterceptor(unaryLogger(logger)),
			grpc.ChainStreamInterceptor(streamLogger(logger)),
		),
		health:  health.NewServer(),
		session: session,
		addr:    cfg.Addr(),
		logger:  logger,
	}

	RegisterRecorderServer(s.grpcServer, NewService(session, logger))
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

// Start listens on the configured address and serves until Stop
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// Stop finishes any active recording and gracefully stops the server
func (s *Server) Stop() {
	s.health.Shutdown()
	if s.session.Recorder().State().Active() {
		if path, err := s.session.Stop(); err != nil {
			s.logger.Error("failed to stop recording on shutdown", zap.Error(err))
		} else {
			s.logger.Info("recording saved on shutdown", zap.String("path", path))
		}
	}

	// telemetry streams only end when their clients leave
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.grpcServer.Stop()
	}
}

func unaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("rpc",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("took", time.Since(start)))
		return resp, err
	}
}

func streamLogger(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logger.Info("stream",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("took", time.Since(start)))
		return err
	}
}
