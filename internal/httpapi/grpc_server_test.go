package httpapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

func startBufGRPC(t *testing.T, srv *GRPCServer, opts ...grpc.ServerOption) (*grpc.ClientConn, func()) {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer(opts...)
	srv.Register(server)

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			t.Logf("grpc serve error: %v", err)
		}
	}()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.Dial()
	}
	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}

	cleanup := func() {
		server.GracefulStop()
		_ = conn.Close()
		_ = listener.Close()
	}
	return conn, cleanup
}

func checkHealth(t *testing.T, conn *grpc.ClientConn, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	return resp.GetStatus()
}

func TestGRPCServer_HealthServing(t *testing.T) {
	srv := NewGRPCServer(ReadyProbe{}, "1.2.3")
	conn, cleanup := startBufGRPC(t, srv)
	defer cleanup()

	if got := checkHealth(t, conn, serviceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before refresh, got %s", got)
	}
	if err := srv.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := checkHealth(t, conn, serviceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", got)
	}
	if got := checkHealth(t, conn, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected overall SERVING, got %s", got)
	}
}

type failingReadiness struct{}

func (f failingReadiness) Check(context.Context) error { return errors.New("boom") }

func TestGRPCServer_HealthFailure(t *testing.T) {
	srv := NewGRPCServer(failingReadiness{}, "1.0.0")
	conn, cleanup := startBufGRPC(t, srv)
	defer cleanup()

	if err := srv.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := checkHealth(t, conn, serviceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %s", got)
	}
}

func TestGRPCServer_ShutdownStopsServing(t *testing.T) {
	srv := NewGRPCServer(ReadyProbe{}, "1.0.0")
	conn, cleanup := startBufGRPC(t, srv)
	defer cleanup()

	_ = srv.Refresh(context.Background())
	srv.Shutdown()
	_ = srv.Refresh(context.Background())
	if got := checkHealth(t, conn, serviceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after shutdown, got %s", got)
	}
}

func TestUnaryLoggingInterceptor(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	srv := NewGRPCServer(ReadyProbe{}, "1.0.0")
	conn, cleanup := startBufGRPC(t, srv, grpc.UnaryInterceptor(UnaryLogging(logger)))
	defer cleanup()

	checkHealth(t, conn, "")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Message != "grpc_call" {
		t.Fatalf("unexpected message %q", entry.Message)
	}
	if entry.Data["method"] != "/grpc.health.v1.Health/Check" {
		t.Fatalf("unexpected method %v", entry.Data["method"])
	}
	if entry.Data["code"] != "OK" {
		t.Fatalf("unexpected code %v", entry.Data["code"])
	}
}
