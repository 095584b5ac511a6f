package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/messaging/kafka"
)

type fakeOffsets struct {
	newest int64
}

func (f fakeOffsets) Partitions(string) ([]int32, error) { return []int32{0}, nil }

func (f fakeOffsets) GetOffset(_ string, _ int32, at int64) (int64, error) {
	if at == sarama.OffsetOldest {
		return 0, nil
	}
	return f.newest, nil
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func deadLetter(t *testing.T, orderID string) []byte {
	t.Helper()

	letter, err := json.Marshal(domain.OutboxDeadLetter{
		OutboxID:      "outbox-" + orderID,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     domain.EventTypeOrderCreated,
		Payload:       json.RawMessage(`{"order":{"id":"` + orderID + `"}}`),
		PublishError:  "broker unavailable",
	})
	require.NoError(t, err)

	value, err := json.Marshal(kafka.Envelope{
		ID:            "outbox-" + orderID,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     domain.EventTypeOrderCreated,
		Payload:       letter,
	})
	require.NoError(t, err)
	return value
}

func stubDependencies(t *testing.T, deps *replayDependencies) {
	t.Helper()
	original := newReplayDependencies
	newReplayDependencies = func(config, *log.Entry) (*replayDependencies, error) {
		return deps, nil
	}
	t.Cleanup(func() { newReplayDependencies = original })
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil, envFrom(map[string]string{"KAFKA_BROKERS": "k1:9092, k2:9092"}), io.Discard)
	require.NoError(t, err)

	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.brokers)
	require.Equal(t, kafka.TopicDeadLetterQueue, cfg.replay.SourceTopic)
	require.Equal(t, kafka.TopicOrderEvents, cfg.replay.TargetTopic)
	require.Equal(t, kafka.DefaultReplayLimit, cfg.replay.Limit)
	require.Equal(t, kafka.DefaultReplayIdleTimeout, cfg.replay.IdleTimeout)
	require.False(t, cfg.replay.Execute)
	require.False(t, cfg.replay.FromNewest)
}

func TestParseConfig_FlagsOverrideEnv(t *testing.T) {
	cfg, err := parseConfig([]string{
		"-brokers=flag:9092",
		"-source-topic=custom.dlq",
		"-target-topic=custom.events",
		"-limit=5",
		"-execute",
		"-from-newest",
		"-idle-timeout=500ms",
	}, envFrom(map[string]string{"KAFKA_BROKERS": "env:9092"}), io.Discard)
	require.NoError(t, err)

	require.Equal(t, []string{"flag:9092"}, cfg.brokers)
	require.Equal(t, "custom.dlq", cfg.replay.SourceTopic)
	require.Equal(t, "custom.events", cfg.replay.TargetTopic)
	require.Equal(t, 5, cfg.replay.Limit)
	require.True(t, cfg.replay.Execute)
	require.True(t, cfg.replay.FromNewest)
	require.Equal(t, 500*time.Millisecond, cfg.replay.IdleTimeout)
}

func TestParseConfig_Invalid(t *testing.T) {
	env := envFrom(map[string]string{"KAFKA_BROKERS": "k1:9092"})

	cases := []struct {
		name string
		args []string
		env  func(string) string
		want string
	}{
		{name: "no brokers", env: envFrom(nil), want: "kafka brokers are required"},
		{name: "blank source", args: []string{"-source-topic= "}, env: env, want: "source-topic is required"},
		{name: "blank target", args: []string{"-target-topic="}, env: env, want: "target-topic is required"},
		{name: "same topics", args: []string{"-source-topic=a", "-target-topic=a"}, env: env, want: "must differ"},
		{name: "zero limit", args: []string{"-limit=0"}, env: env, want: "limit must be > 0"},
		{name: "zero idle timeout", args: []string{"-idle-timeout=0s"}, env: env, want: "idle-timeout must be > 0"},
		{name: "unknown flag", args: []string{"-verbose"}, env: env, want: "flag provided but not defined"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseConfig(tc.args, tc.env, io.Discard)
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.want), "error %q does not contain %q", err, tc.want)
		})
	}
}

func TestRun_ExecuteRepublishes(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	pc := consumer.ExpectConsumePartition(kafka.TopicDeadLetterQueue, 0, 0)
	pc.YieldMessage(&sarama.ConsumerMessage{Value: deadLetter(t, "ORD-1")})
	pc.YieldMessage(&sarama.ConsumerMessage{Value: deadLetter(t, "ORD-2")})

	syncProducer := mocks.NewSyncProducer(t, nil)
	for i := 0; i < 2; i++ {
		syncProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			if msg.Topic != kafka.TopicOrderEvents {
				return fmt.Errorf("unexpected topic %s", msg.Topic)
			}
			return nil
		})
	}
	producer := kafka.NewProducerFromSync(syncProducer, quietLogger())

	closed := false
	stubDependencies(t, &replayDependencies{
		offsets:  fakeOffsets{newest: 2},
		consumer: consumer,
		producer: producer,
		closeFn: func() error {
			closed = true
			return errors.Join(producer.Close(), consumer.Close())
		},
	})

	cfg, err := parseConfig([]string{"-brokers=k1:9092", "-execute", "-idle-timeout=1s"}, envFrom(nil), io.Discard)
	require.NoError(t, err)

	stats, err := run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.Equal(t, kafka.ReplayStats{Processed: 2, Replayed: 2}, stats)
	require.True(t, closed)
}

func TestRun_DryRunDoesNotPublish(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	pc := consumer.ExpectConsumePartition(kafka.TopicDeadLetterQueue, 0, 0)
	pc.YieldMessage(&sarama.ConsumerMessage{Value: deadLetter(t, "ORD-1")})

	stubDependencies(t, &replayDependencies{
		offsets:  fakeOffsets{newest: 1},
		consumer: consumer,
		closeFn:  consumer.Close,
	})

	cfg, err := parseConfig([]string{"-brokers=k1:9092", "-idle-timeout=1s"}, envFrom(nil), io.Discard)
	require.NoError(t, err)

	stats, err := run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.Equal(t, kafka.ReplayStats{Processed: 1, Replayed: 1}, stats)
}

func TestRun_DependencyError(t *testing.T) {
	original := newReplayDependencies
	newReplayDependencies = func(config, *log.Entry) (*replayDependencies, error) {
		return nil, errors.New("kafka: client has run out of available brokers")
	}
	t.Cleanup(func() { newReplayDependencies = original })

	_, err := run(context.Background(), config{brokers: []string{"k1:9092"}}, quietLogger())
	require.ErrorContains(t, err, "out of available brokers")
}
