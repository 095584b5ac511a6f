// Package notify доставляет короткие уведомления (toasts) подписчикам интерфейса.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
)

// DefaultRetryDelay: задержка единственной повторной доставки, если подписчиков ещё нет.
const DefaultRetryDelay = 100 * time.Millisecond

// Kind: вид уведомления.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification: одно уведомление.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Handler получает уведомления синхронно в горутине публикующего.
type Handler func(Notification)

// BusOptions задаёт параметры Bus.
type BusOptions struct {
	Logger     *log.Entry
	Metrics    *metrics.StoreMetrics
	RetryDelay time.Duration
}

// Option настраивает Bus.
type Option func(*BusOptions)

// WithLogger задаёт logger шины.
func WithLogger(logger *log.Entry) Option {
	return func(opts *BusOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики доставки.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(opts *BusOptions) {
		opts.Metrics = m
	}
}

// WithRetryDelay задаёт задержку повторной доставки.
func WithRetryDelay(delay time.Duration) Option {
	return func(opts *BusOptions) {
		opts.RetryDelay = delay
	}
}

// Subscription: дескриптор подписки.
type Subscription struct {
	bus     *Bus
	handler Handler
	once    sync.Once
}

// Unsubscribe снимает подписку; повторный вызов ничего не делает.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

type pendingRetry struct {
	notification Notification
	timer        *time.Timer
}

// Bus рассылает уведомления всем текущим подписчикам. Если на момент публикации
// подписчиков нет, доставка повторяется один раз через RetryDelay, затем уведомление
// отбрасывается.
type Bus struct {
	mu         sync.Mutex
	subs       []*Subscription
	pending    map[*pendingRetry]struct{}
	closed     bool
	retryDelay time.Duration
	logger     *log.Entry
	metrics    *metrics.StoreMetrics
}

// NewBus создаёт шину уведомлений; владелец обязан вызвать Close при остановке.
func NewBus(options ...Option) *Bus {
	opts := BusOptions{RetryDelay: DefaultRetryDelay}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "notification-bus")
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}

	return &Bus{
		pending:    make(map[*pendingRetry]struct{}),
		retryDelay: opts.RetryDelay,
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// Subscribe добавляет подписчика. Подписчики вызываются в порядке подписки.
func (b *Bus) Subscribe(handler Handler) *Subscription {
	sub := &Subscription{bus: b, handler: handler}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.subs = append(b.subs, sub)
	}
	return sub
}

// SubscribeExclusive оставляет единственного подписчика, снимая всех остальных.
func (b *Bus) SubscribeExclusive(handler Handler) *Subscription {
	sub := &Subscription{bus: b, handler: handler}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.subs = []*Subscription{sub}
	}
	return sub
}

// Publish создаёт уведомление и доставляет его подписчикам.
func (b *Bus) Publish(message string, kind Kind) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return n
	}
	subs := b.snapshotLocked()
	if len(subs) == 0 {
		retry := &pendingRetry{notification: n}
		b.pending[retry] = struct{}{}
		retry.timer = time.AfterFunc(b.retryDelay, func() { b.retry(retry) })
		b.mu.Unlock()

		b.metrics.RecordNotification(metrics.NotificationRetried)
		return n
	}
	b.mu.Unlock()

	b.deliver(subs, n)
	return n
}

// Subscribers возвращает количество активных подписок.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// PendingRetries возвращает количество уведомлений, ожидающих повторной доставки.
func (b *Bus) PendingRetries() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close отменяет ожидающие повторы и снимает всех подписчиков.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for retry := range b.pending {
		retry.timer.Stop()
	}
	b.pending = make(map[*pendingRetry]struct{})
	b.subs = nil
}

func (b *Bus) retry(retry *pendingRetry) {
	b.mu.Lock()
	if _, ok := b.pending[retry]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.pending, retry)
	subs := b.snapshotLocked()
	b.mu.Unlock()

	if len(subs) == 0 {
		b.logger.WithField("notification_id", retry.notification.ID).Debug("no subscribers after retry, notification dropped")
		b.metrics.RecordNotification(metrics.NotificationDropped)
		return
	}
	b.deliver(subs, retry.notification)
}

func (b *Bus) deliver(subs []*Subscription, n Notification) {
	for _, sub := range subs {
		b.invoke(sub, n)
	}
	b.metrics.RecordNotification(metrics.NotificationDelivered)
}

func (b *Bus) invoke(sub *Subscription, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(log.Fields{
				"notification_id": n.ID,
				"panic":           r,
			}).Error("notification subscriber panicked")
		}
	}()
	sub.handler(n)
}

func (b *Bus) remove(target *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == target {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) snapshotLocked() []*Subscription {
	return append([]*Subscription(nil), b.subs...)
}
