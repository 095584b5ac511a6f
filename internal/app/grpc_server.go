package app

import (
	"errors"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// newGRPCServer собирает служебный gRPC-сервер: health для оркестратора,
// reflection для grpcurl, метрики и трейсы вызовов.
func newGRPCServer(registerer prometheus.Registerer, logger *log.Entry) (*grpc.Server, *health.Server) {
	serverMetrics := grpcServerMetrics(registerer, logger)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(serverMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(serverMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	serverMetrics.InitializeMetrics(server)
	return server, healthServer
}

// grpcServerMetrics регистрирует метрики или переиспользует уже зарегистрированные.
func grpcServerMetrics(registerer prometheus.Registerer, logger *log.Entry) *promgrpc.ServerMetrics {
	serverMetrics := promgrpc.NewServerMetrics()
	err := registerer.Register(serverMetrics)
	if err == nil {
		return serverMetrics
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*promgrpc.ServerMetrics); ok {
			return existing
		}
	}
	logger.WithError(err).Warn("failed to register grpc metrics")
	return serverMetrics
}

// stopGRPC ждёт завершения активных RPC, но не дольше shutdownTimeout.
func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()
	select {
	case <-stopped:
	case <-timer.C:
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}
