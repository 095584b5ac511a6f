package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

const defaultPullLimit = 100

// OutboxQueue хранит события заказов в памяти процесса в порядке постановки.
// Доставленные и отброшенные события убираются из очереди, счётчики сохраняются.
type OutboxQueue struct {
	mu      sync.Mutex
	pending []domain.OutboxMessage
	index   map[string]struct{}
	sent    int
	failed  int
	now     func() time.Time
}

// NewOutboxRepository создаёт in-memory outbox.
func NewOutboxRepository() *OutboxQueue {
	return &OutboxQueue{
		index: make(map[string]struct{}),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (q *OutboxQueue) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, exists := q.index[msg.ID]; exists {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message %s: duplicate id", msg.ID)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = q.now()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)

	q.pending = append(q.pending, msg)
	q.index[msg.ID] = struct{}{}
	return msg, nil
}

// PullPending возвращает копию первых limit событий, не удаляя их из очереди.
func (q *OutboxQueue) PullPending(limit int) ([]domain.OutboxMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit <= 0 {
		limit = defaultPullLimit
	}
	n := min(limit, len(q.pending))
	out := make([]domain.OutboxMessage, n)
	copy(out, q.pending[:n])
	return out, nil
}

func (q *OutboxQueue) Stats() (domain.OutboxStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := domain.OutboxStats{PendingCount: len(q.pending)}
	if len(q.pending) > 0 {
		stats.OldestPendingAt = q.pending[0].CreatedAt
	}
	return stats, nil
}

func (q *OutboxQueue) MarkSent(id string) error {
	return q.remove(id, &q.sent)
}

func (q *OutboxQueue) MarkFailed(id string) error {
	return q.remove(id, &q.failed)
}

// Delivered возвращает число отправленных и отброшенных событий.
func (q *OutboxQueue) Delivered() (sent, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sent, q.failed
}

func (q *OutboxQueue) remove(id string, counter *int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, msg := range q.pending {
		if msg.ID != id {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		*counter++
		return nil
	}
	return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
}

var _ domain.OutboxRepository = (*OutboxQueue)(nil)
