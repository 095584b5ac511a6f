package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "orderhub.order.events"
	TopicDeadLetterQueue = "orderhub.order.events.dlq" // сообщения, не опубликованные после всех попыток
)

// HeaderEventType дублирует тип события в заголовке, чтобы потребители могли
// фильтровать сообщения без разбора тела.
const HeaderEventType = "x-event-type"

// Envelope: формат сообщения о событии заказа в Kafka.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage) Envelope {
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishedAt:   time.Now().UTC(),
	}
}

// Key возвращает ключ партиционирования: id заказа, иначе id сообщения.
func (e Envelope) Key() string {
	if e.AggregateID != "" {
		return e.AggregateID
	}
	return e.ID
}

// ParseEnvelope разбирает сообщение из topic событий заказов.
func ParseEnvelope(message *sarama.ConsumerMessage) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal order event envelope: %w", err)
	}
	return envelope, nil
}
