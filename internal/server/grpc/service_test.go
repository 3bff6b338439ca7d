package grpc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/emmett/voxrec/internal/app"
	"github.com/emmett/voxrec/internal/audio/audiotest"
	"github.com/emmett/voxrec/internal/recorder"
	"github.com/emmett/voxrec/internal/wave"
)

type fixture struct {
	src     *audiotest.Source
	session *app.Session
	client  *Client
	conn    *grpc.ClientConn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	src := audiotest.NewSource(3200)
	rec, err := recorder.New(wave.DefaultConfig(), src.Factory(), recorder.WithLogger(logger))
	require.NoError(t, err)
	session := app.NewSession(rec, filepath.Join(t.TempDir(), "sandbox"), logger)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(Config{Host: "localhost", Port: 0}, session, logger)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})
	return &fixture{src: src, session: session, client: NewClient(conn), conn: conn}
}

func TestRecordOverGRPC(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	want := filepath.Join(t.TempDir(), "remote.wav")
	path, err := f.client.Start(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, want, path)

	st, err := f.client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "recording", st["state"])
	assert.Equal(t, want, st["path"])
	assert.Equal(t, float64(7), st["session_id"])

	f.src.Push(make([]byte, 3200), make([]byte, 3200))
	require.Eventually(t, func() bool {
		info, err := os.Stat(want)
		return err == nil && info.Size() == wave.HeaderSize+6400
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, f.client.Pause(ctx))
	require.NoError(t, f.client.Resume(ctx))

	stopped, err := f.client.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, stopped)

	info, err := wave.Inspect(want)
	require.NoError(t, err)
	assert.Equal(t, int64(6400), info.DataSize)
}

func TestSandboxStartOverGRPC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path, err := f.client.Start(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "sandbox", filepath.Base(filepath.Dir(path)))

	_, err = f.client.Stop(ctx)
	require.NoError(t, err)
}

func TestInvalidStateIsFailedPrecondition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.client.Pause(ctx)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = f.client.Stop(ctx)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = f.client.Start(ctx, filepath.Join(t.TempDir(), "a.wav"))
	require.NoError(t, err)
	err = f.client.Resume(ctx)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = f.client.Stop(ctx)
	require.NoError(t, err)
}

func TestStorageFailureIsInternal(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Start(context.Background(), filepath.Join(t.TempDir(), "missing", "a.wav"))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestTelemetryStream(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := f.client.Telemetry(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.session.Hub().Subscribers() == 1 }, 2*time.Second, time.Millisecond)

	_, err = f.client.Start(ctx, filepath.Join(t.TempDir(), "t.wav"))
	require.NoError(t, err)
	msg, err := stream.Recv()
	require.NoError(t, err)
	first := msg.AsMap()

	assert.Equal(t, "state", first["type"])
	assert.Equal(t, "stopped", first["previous"])
	assert.Equal(t, "recording", first["state"])

	f.src.Push(make([]byte, 3200))
	seen := map[string]bool{}
	for !seen["amplitude"] || !seen["elapsed"] {
		msg, err := stream.Recv()
		require.NoError(t, err)
		seen[msg.AsMap()["type"].(string)] = true
	}

	_, err = f.client.Stop(ctx)
	require.NoError(t, err)
	for {
		msg, err := stream.Recv()
		require.NoError(t, err)
		if msg.AsMap()["type"] == "saved" {
			break
		}
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	resp, err := healthpb.NewHealthClient(f.conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{&recorder.InvalidStateError{Op: "pause", State: recorder.Stopped}, codes.FailedPrecondition},
		{&recorder.DeviceError{Op: "read", Err: errors.New("gone")}, codes.Unavailable},
		{&recorder.StorageError{Op: "write", Path: "x", Err: errors.New("full")}, codes.Internal},
		{errors.Join(&recorder.StorageError{Op: "open", Path: "x", Err: os.ErrNotExist}), codes.Internal},
		{errors.New("other"), codes.Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}
