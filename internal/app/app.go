// Package app собирает хранилище, шину уведомлений, HTTP API и фоновые процессы
// в один запускаемый сервис.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orderhub/internal/health"
	"github.com/vladislavdragonenkov/orderhub/internal/tracing"
	"github.com/vladislavdragonenkov/orderhub/internal/version"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Run запускает сервис и блокируется до отмены ctx или падения сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: tracing.ServiceName,
		Version:     version.GetVersion(),
		SampleRatio: cfg.TraceSampleRatio,
		Insecure:    true,
	})
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		tracingCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tracingCtx); err != nil {
			logger.WithError(err).Warn("tracing shutdown with error")
		}
	}()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	// События заказов пишутся в outbox только при настроенной Kafka.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafkaProducer(kafkaProducer, logger)

	var (
		registerer  = prometheus.DefaultRegisterer
		storeOutbox domain.OutboxRepository
		stopOutbox  context.CancelFunc
		outboxDone  <-chan struct{}
	)
	if kafkaProducer != nil {
		repo, worker := newOutboxWorker(cfg, deps.outboxRepo, kafkaProducer, registerer, logger)
		storeOutbox = repo
		stopOutbox, outboxDone = startOutboxWorker(ctx, worker)
	}
	defer shutdownOutboxWorker(stopOutbox, outboxDone, logger)

	orderRT := newOrderRuntime(ctx, cfg, deps.kv, storeOutbox, registerer, logger)
	defer orderRT.close()

	grpcServer, grpcHealth := newGRPCServer(registerer, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if storeOutbox != nil {
		healthHandler.RegisterChecker("outbox", outboxBacklogChecker(storeOutbox, outboxLagThreshold, time.Now))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	apiSrv := startAPIServer(ctx, cfg.HTTPAddr, orderRT.router, logger)
	stopHTTP := func() {
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		stopHTTP()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		stopHTTP()
		return ctx.Err()
	case err := <-errCh:
		stopHTTP()
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// startAPIServer запускает HTTP API заказов. Контексты запросов наследуют ctx,
// поэтому SSE-потоки закрываются вместе с сервисом.
func startAPIServer(ctx context.Context, addr string, handler http.Handler, logger *log.Entry) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logger.Infof("HTTP API слушает %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("api server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
