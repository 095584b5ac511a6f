package kafka

import (
	"fmt"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// OutboxTopicPublisher связывает outbox-воркер с одним Kafka topic.
// Основной поток и DLQ используют два экземпляра с разными topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт publisher; пустой topic означает TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// Publish оборачивает сообщение в Envelope. Любая ошибка помечается domain.ErrOutboxPublish.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	var producer *Producer
	if p != nil {
		producer = p.producer
	}
	if err := producer.PublishEnvelope(p.topicName(), NewEnvelope(event)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutboxPublish, err)
	}
	return nil
}

func (p *OutboxTopicPublisher) topicName() string {
	if p == nil {
		return TopicOrderEvents
	}
	return p.topic
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
