// Command dlq-reprocess возвращает события заказов из DLQ в основной topic.
// По умолчанию работает в режиме dry-run и только перечисляет кандидатов.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/messaging/kafka"
)

type config struct {
	brokers []string
	replay  kafka.ReplayConfig
}

// replayDependencies: подключения к Kafka на время одного прохода.
type replayDependencies struct {
	offsets  kafka.OffsetSource
	consumer kafka.PartitionSource
	producer *kafka.Producer
	closeFn  func() error
}

var newReplayDependencies = func(cfg config, logger *log.Entry) (*replayDependencies, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = kafka.ClientID + "-dlq-reprocess"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	deps := &replayDependencies{
		offsets:  client,
		consumer: consumer,
		closeFn: func() error {
			return errors.Join(consumer.Close(), client.Close())
		},
	}
	if !cfg.replay.Execute {
		return deps, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers, logger)
	if err != nil {
		_ = deps.closeFn()
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	deps.producer = producer
	deps.closeFn = func() error {
		return errors.Join(producer.Close(), consumer.Close(), client.Close())
	}
	return deps, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, cfg, log.WithField("component", "dlq-reprocess")); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func parseConfig(args []string, getenv func(string) string, output io.Writer) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	fs.StringVar(&cfg.replay.SourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	fs.StringVar(&cfg.replay.TargetTopic, "target-topic", kafka.TopicOrderEvents, "target topic for replay")
	fs.IntVar(&cfg.replay.Limit, "limit", kafka.DefaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&cfg.replay.Execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&cfg.replay.FromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.replay.IdleTimeout, "idle-timeout", kafka.DefaultReplayIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv("KAFKA_BROKERS")
	}

	cfg.brokers = kafka.ParseBrokers(brokersRaw)
	cfg.replay.SourceTopic = strings.TrimSpace(cfg.replay.SourceTopic)
	cfg.replay.TargetTopic = strings.TrimSpace(cfg.replay.TargetTopic)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	case cfg.replay.SourceTopic == "":
		return config{}, fmt.Errorf("source-topic is required")
	case cfg.replay.TargetTopic == "":
		return config{}, fmt.Errorf("target-topic is required")
	case cfg.replay.SourceTopic == cfg.replay.TargetTopic:
		return config{}, fmt.Errorf("source-topic and target-topic must differ")
	case cfg.replay.Limit <= 0:
		return config{}, fmt.Errorf("limit must be > 0")
	case cfg.replay.IdleTimeout <= 0:
		return config{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return cfg, nil
}

func run(ctx context.Context, cfg config, logger *log.Entry) (kafka.ReplayStats, error) {
	started := time.Now()

	deps, err := newReplayDependencies(cfg, logger)
	if err != nil {
		return kafka.ReplayStats{}, err
	}
	defer func() {
		if closeErr := deps.closeFn(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close kafka connections")
		}
	}()

	stats, err := kafka.NewReplayer(deps.offsets, deps.consumer, deps.producer, logger).Run(ctx, cfg.replay)
	if err != nil {
		return stats, err
	}

	mode := "dry-run"
	if cfg.replay.Execute {
		mode = "execute"
	}
	logger.WithFields(log.Fields{
		"mode":         mode,
		"source_topic": cfg.replay.SourceTopic,
		"target_topic": cfg.replay.TargetTopic,
		"processed":    stats.Processed,
		"replayed":     stats.Replayed,
		"skipped":      stats.Skipped,
		"duration":     time.Since(started).String(),
	}).Info("dlq reprocess completed")
	return stats, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
