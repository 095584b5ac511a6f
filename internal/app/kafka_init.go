package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orderhub/internal/health"
	"github.com/vladislavdragonenkov/orderhub/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
	"github.com/vladislavdragonenkov/orderhub/internal/service/outbox"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
)

const (
	outboxStopTimeout = 5 * time.Second
	// outboxLagThreshold: возраст самого старого pending-события, после
	// которого сервис считается degraded.
	outboxLagThreshold = time.Minute
)

// initKafkaProducer инициализирует Kafka producer, если brokers не пустой.
// Возвращает nil, nil, если Kafka не настроена.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := kafka.ParseBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, logger.WithField("layer", "kafka"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without order events")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafkaProducer закрывает Kafka producer, если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// newOutboxWorker собирает воркер, публикующий события заказов в topic и DLQ.
// Без postgres события копятся в памяти процесса.
func newOutboxWorker(cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, registerer prometheus.Registerer, logger *log.Entry) (domain.OutboxRepository, *outbox.Worker) {
	if repo == nil {
		repo = memory.NewOutboxRepository()
	}

	worker := outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(metrics.NewOutboxMetrics(registerer)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)
	return repo, worker
}

// startOutboxWorker запускает воркер в отдельной горутине.
func startOutboxWorker(ctx context.Context, worker *outbox.Worker) (context.CancelFunc, <-chan struct{}) {
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	return cancel, done
}

// shutdownOutboxWorker останавливает воркер и ждёт завершения текущего батча.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(outboxStopTimeout):
		logger.Warn("outbox worker stop timed out")
	}
}

// outboxBacklogChecker сообщает о застрявших событиях outbox.
func outboxBacklogChecker(repo domain.OutboxRepository, maxLag time.Duration, now func() time.Time) healthcheck.Checker {
	return healthcheck.CheckFunc(func() healthcheck.Check {
		started := time.Now()
		check := healthcheck.Check{Name: "outbox", Status: healthcheck.StatusHealthy}

		stats, err := repo.Stats()
		check.DurationMs = time.Since(started).Milliseconds()
		switch {
		case err != nil:
			check.Status = healthcheck.StatusUnhealthy
			check.Message = err.Error()
		case stats.PendingCount == 0:
		default:
			lag := now().Sub(stats.OldestPendingAt)
			check.Message = fmt.Sprintf("pending=%d lag=%s", stats.PendingCount, lag.Round(time.Second))
			if lag > maxLag {
				check.Status = healthcheck.StatusDegraded
			}
		}
		return check
	})
}
