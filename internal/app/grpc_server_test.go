package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestNewGRPCServer_HealthAndShutdown(t *testing.T) {
	registry := prometheus.NewRegistry()
	server, healthServer := newGRPCServer(registry, quietLogger())

	lis := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	families, err := registry.Gather()
	require.NoError(t, err)
	var handled bool
	for _, family := range families {
		if family.GetName() == "grpc_server_handled_total" {
			handled = true
		}
	}
	require.True(t, handled, "grpc server metrics must be registered in the given registry")

	stopped := make(chan struct{})
	go func() {
		stopGRPC(server, quietLogger())
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("stopGRPC did not return")
	}
}

func TestGRPCServerMetrics_ReusesRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := grpcServerMetrics(registry, quietLogger())
	second := grpcServerMetrics(registry, quietLogger())
	require.Same(t, first, second)
}
