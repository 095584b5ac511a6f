package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// Значения по умолчанию для ReplayConfig.
const (
	DefaultReplayLimit       = 100
	DefaultReplayIdleTimeout = 2 * time.Second
)

// ErrUnsupportedDeadLetter: сообщение DLQ нельзя восстановить в событие заказа.
var ErrUnsupportedDeadLetter = errors.New("unsupported dead letter message")

// OffsetSource отдаёт разметку topic. Реализуется sarama.Client.
type OffsetSource interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
}

// PartitionSource открывает чтение партиции. Реализуется sarama.Consumer.
type PartitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error)
}

// ReplayConfig задаёт один проход переотправки DLQ.
type ReplayConfig struct {
	SourceTopic string
	TargetTopic string
	Limit       int
	IdleTimeout time.Duration
	FromNewest  bool
	// При Execute == false кандидаты только перечисляются (dry-run).
	Execute bool
}

// ReplayStats: итог прохода.
type ReplayStats struct {
	Processed int
	Replayed  int
	Skipped   int
}

func (s *ReplayStats) add(other ReplayStats) {
	s.Processed += other.Processed
	s.Replayed += other.Replayed
	s.Skipped += other.Skipped
}

// Replayer перечитывает DLQ и возвращает исходные события заказов в основной topic.
type Replayer struct {
	offsets  OffsetSource
	consumer PartitionSource
	producer *Producer
	logger   *log.Entry
}

// NewReplayer создаёт Replayer; producer может быть nil для dry-run.
func NewReplayer(offsets OffsetSource, consumer PartitionSource, producer *Producer, logger *log.Entry) *Replayer {
	if logger == nil {
		logger = log.WithField("component", "dlq-replay")
	}
	return &Replayer{
		offsets:  offsets,
		consumer: consumer,
		producer: producer,
		logger:   logger,
	}
}

// Run проходит партиции SourceTopic по возрастанию номера, пока не наберёт Limit сообщений.
func (r *Replayer) Run(ctx context.Context, cfg ReplayConfig) (ReplayStats, error) {
	var total ReplayStats

	if r.offsets == nil || r.consumer == nil {
		return total, fmt.Errorf("kafka client and consumer are required")
	}
	if cfg.Execute && r.producer == nil {
		return total, fmt.Errorf("producer is required in execute mode")
	}
	if cfg.SourceTopic == "" {
		cfg.SourceTopic = TopicDeadLetterQueue
	}
	if cfg.TargetTopic == "" {
		cfg.TargetTopic = TopicOrderEvents
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultReplayLimit
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultReplayIdleTimeout
	}

	partitions, err := r.offsets.Partitions(cfg.SourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.SourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.Processed >= cfg.Limit {
			break
		}
		stats, err := r.replayPartition(ctx, cfg, partition, cfg.Limit-total.Processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	r.logger.WithFields(log.Fields{
		"execute":   cfg.Execute,
		"processed": total.Processed,
		"replayed":  total.Replayed,
		"skipped":   total.Skipped,
	}).Info("dlq replay finished")

	return total, nil
}

func (r *Replayer) replayPartition(ctx context.Context, cfg ReplayConfig, partition int32, limit int) (ReplayStats, error) {
	var stats ReplayStats

	oldest, err := r.offsets.GetOffset(cfg.SourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.offsets.GetOffset(cfg.SourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if cfg.FromNewest && newest-int64(limit) > oldest {
		start = newest - int64(limit)
	}

	pc, err := r.consumer.ConsumePartition(cfg.SourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(cfg.IdleTimeout)
	defer idle.Stop()

	for stats.Processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(cfg.IdleTimeout)

			stats.Processed++
			if err := r.replayMessage(cfg, msg); err != nil {
				if errors.Is(err, ErrUnsupportedDeadLetter) {
					stats.Skipped++
					r.logger.WithError(err).WithFields(log.Fields{
						"partition": msg.Partition,
						"offset":    msg.Offset,
					}).Warn("skip dlq message")
					continue
				}
				return stats, err
			}
			stats.Replayed++

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}

	return stats, nil
}

func (r *Replayer) replayMessage(cfg ReplayConfig, msg *sarama.ConsumerMessage) error {
	envelope, err := RestoreFromDeadLetter(msg.Value)
	if err != nil {
		return err
	}

	if !cfg.Execute {
		r.logger.WithFields(log.Fields{
			"partition":    msg.Partition,
			"offset":       msg.Offset,
			"target_topic": cfg.TargetTopic,
			"order_id":     envelope.AggregateID,
			"event_type":   envelope.EventType,
		}).Info("dlq replay candidate")
		return nil
	}

	if err := r.producer.PublishEnvelope(cfg.TargetTopic, envelope); err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	return nil
}

// RestoreFromDeadLetter восстанавливает исходное событие из сообщения DLQ,
// которое отправил outbox worker.
func RestoreFromDeadLetter(value []byte) (Envelope, error) {
	var outer Envelope
	if err := json.Unmarshal(value, &outer); err != nil || len(outer.Payload) == 0 {
		return Envelope{}, fmt.Errorf("%w: not an order event envelope", ErrUnsupportedDeadLetter)
	}

	var letter domain.OutboxDeadLetter
	if err := json.Unmarshal(outer.Payload, &letter); err != nil {
		return Envelope{}, fmt.Errorf("%w: decode dead letter: %v", ErrUnsupportedDeadLetter, err)
	}
	if len(letter.Payload) == 0 {
		return Envelope{}, fmt.Errorf("%w: dead letter has no original payload", ErrUnsupportedDeadLetter)
	}

	return Envelope{
		ID:            firstNonEmpty(letter.OutboxID, outer.ID),
		AggregateType: firstNonEmpty(letter.AggregateType, outer.AggregateType),
		AggregateID:   firstNonEmpty(letter.AggregateID, outer.AggregateID),
		EventType:     firstNonEmpty(letter.EventType, outer.EventType),
		Payload:       letter.Payload,
		PublishedAt:   time.Now().UTC(),
	}, nil
}

// ParseBrokers разбирает список брокеров через запятую.
func ParseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
