package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// ClientID передаётся брокеру в метаданных подключения.
const ClientID = "orderhub"

// HeaderAggregateType повторяет тип агрегата рядом с HeaderEventType.
const HeaderAggregateType = "x-aggregate-type"

var errProducerClosed = errors.New("kafka producer is not initialized")

// Producer отправляет конверты событий заказов синхронно: Publish возвращается
// только после подтверждения от всех in-sync реплик.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// NewSaramaConfig возвращает конфигурацию идемпотентного sync producer.
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = ClientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Compression = sarama.CompressionSnappy
	// идемпотентность требует одного запроса в полёте
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewProducer подключается к брокерам.
func NewProducer(brokers []string, logger *log.Entry) (*Producer, error) {
	sync, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer for %v: %w", brokers, err)
	}
	return NewProducerFromSync(sync, logger), nil
}

// NewProducerFromSync оборачивает готовый sarama.SyncProducer.
func NewProducerFromSync(sync sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{sync: sync, logger: logger}
}

// PublishEnvelope отправляет событие заказа в topic, ключ сообщения берётся из Envelope.Key.
func (p *Producer) PublishEnvelope(topic string, envelope Envelope) error {
	if p == nil || p.sync == nil {
		return errProducerClosed
	}
	msg, err := envelopeMessage(topic, envelope)
	if err != nil {
		return err
	}

	entry := p.logger.WithFields(log.Fields{
		"topic":      topic,
		"event_id":   envelope.ID,
		"event_type": envelope.EventType,
	})
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		entry.WithError(err).Error("kafka send failed")
		return fmt.Errorf("send %s to %s: %w", envelope.ID, topic, err)
	}
	entry.WithFields(log.Fields{"partition": partition, "offset": offset}).Debug("order event sent")
	return nil
}

func envelopeMessage(topic string, envelope Envelope) (*sarama.ProducerMessage, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope %s: %w", envelope.ID, err)
	}

	headers := []sarama.RecordHeader{{Key: []byte(HeaderEventType), Value: []byte(envelope.EventType)}}
	if envelope.AggregateType != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderAggregateType), Value: []byte(envelope.AggregateType)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(envelope.Key()),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	}
	if !envelope.PublishedAt.IsZero() {
		msg.Timestamp = envelope.PublishedAt
	}
	return msg, nil
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if p == nil || p.sync == nil {
		return nil
	}
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
