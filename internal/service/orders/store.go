// Package orders хранит каноническую коллекцию заказов и строит по ней выборки.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
	"github.com/vladislavdragonenkov/orderhub/internal/notify"
)

// Тексты уведомлений о мутациях.
const (
	MessageCreated       = "Commande ajoutée"
	MessageUpdated       = "Commande mise à jour"
	MessageRemoved       = "Commande supprimée"
	MessagePersistFailed = "Échec de l'enregistrement des commandes"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opRemove = "remove"
)

// Archive загружает и сохраняет коллекцию целиком.
type Archive interface {
	Load(ctx context.Context) []domain.Order
	Save(ctx context.Context, orders []domain.Order) error
}

// Notifier публикует уведомления для интерфейса.
type Notifier interface {
	Publish(message string, kind notify.Kind) notify.Notification
}

// StoreOptions задаёт параметры Store.
type StoreOptions struct {
	Logger  *log.Entry
	Metrics *metrics.StoreMetrics
	Outbox  domain.OutboxRepository
	Tracer  trace.Tracer
	Locale  language.Tag
}

// Option настраивает Store.
type Option func(*StoreOptions)

// WithLogger задаёт logger хранилища.
func WithLogger(logger *log.Entry) Option {
	return func(opts *StoreOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики мутаций и запросов.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(opts *StoreOptions) {
		opts.Metrics = m
	}
}

// WithOutbox включает постановку событий изменения заказов в outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(opts *StoreOptions) {
		opts.Outbox = repo
	}
}

// WithTracer задаёт tracer для span-ов мутаций.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *StoreOptions) {
		opts.Tracer = tracer
	}
}

// WithLocale задаёт локаль сортировки по клиенту, если в запросе она не указана.
func WithLocale(tag language.Tag) Option {
	return func(opts *StoreOptions) {
		opts.Locale = tag
	}
}

// Store владеет коллекцией заказов. Каждая мутация сначала применяется в памяти,
// затем коллекция целиком записывается в архив, затем публикуется уведомление.
type Store struct {
	mu       sync.Mutex
	orders   []domain.Order
	archive  Archive
	notifier Notifier
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.StoreMetrics
	tracer   trace.Tracer
	locale   language.Tag
}

// NewStore загружает коллекцию один раз и использует её как источник истины.
func NewStore(ctx context.Context, archive Archive, notifier Notifier, options ...Option) *Store {
	var opts StoreOptions
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-store")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/vladislavdragonenkov/orderhub/internal/service/orders")
	}

	loaded := archive.Load(ctx)
	if loaded == nil {
		loaded = []domain.Order{}
	}

	s := &Store{
		orders:   loaded,
		archive:  archive,
		notifier: notifier,
		outbox:   opts.Outbox,
		logger:   logger,
		metrics:  opts.Metrics,
		tracer:   tracer,
		locale:   opts.Locale,
	}
	s.metrics.SetOrders(len(loaded))
	logger.WithField("orders", len(loaded)).Info("order store loaded")

	return s
}

// Create добавляет новый заказ. Итог пересчитывается по позициям.
func (s *Store) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.Create", trace.WithAttributes(attribute.String("order.id", order.ID)))
	defer span.End()

	order = order.Clone()
	order.Recalculate()
	if err := validate(order); err != nil {
		s.reject(span, opCreate, err)
		return domain.Order{}, err
	}

	s.mu.Lock()
	if s.indexLocked(order.ID) >= 0 {
		s.mu.Unlock()
		err := fmt.Errorf("%w: %s", domain.ErrOrderAlreadyExists, order.ID)
		s.reject(span, opCreate, err)
		return domain.Order{}, err
	}
	s.orders = append(s.orders, order)
	persistErr := s.commitLocked(ctx, domain.EventTypeOrderCreated, order)
	s.mu.Unlock()

	return order.Clone(), s.finish(span, opCreate, order.ID, MessageCreated, persistErr)
}

// Update полностью заменяет заказ с указанным id, сохраняя его позицию в коллекции.
// Пустой order.ID принимается равным id. Для отсутствующего id это no-op: возвращается
// нулевой Order без ошибки.
func (s *Store) Update(ctx context.Context, id string, order domain.Order) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order = order.Clone()
	if order.ID == "" {
		order.ID = id
	}
	if order.ID != id {
		err := fmt.Errorf("%w: %s != %s", domain.ErrOrderIDMismatch, order.ID, id)
		s.reject(span, opUpdate, err)
		return domain.Order{}, err
	}
	order.Recalculate()
	if err := validate(order); err != nil {
		s.reject(span, opUpdate, err)
		return domain.Order{}, err
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		s.noop(span, opUpdate, id)
		return domain.Order{}, nil
	}
	s.orders[idx] = order
	persistErr := s.commitLocked(ctx, domain.EventTypeOrderUpdated, order)
	s.mu.Unlock()

	return order.Clone(), s.finish(span, opUpdate, id, MessageUpdated, persistErr)
}

// Remove удаляет заказ. Повторное удаление и отсутствующий id ничего не делают.
func (s *Store) Remove(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "orders.Remove", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		s.noop(span, opRemove, id)
		return nil
	}
	removed := s.orders[idx]
	s.orders = append(s.orders[:idx:idx], s.orders[idx+1:]...)
	persistErr := s.commitLocked(ctx, domain.EventTypeOrderDeleted, removed)
	s.mu.Unlock()

	return s.finish(span, opRemove, id, MessageRemoved, persistErr)
}

// Orders возвращает снимок коллекции в порядке добавления.
func (s *Store) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get возвращает заказ по id или domain.ErrOrderNotFound.
func (s *Store) Get(id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return s.orders[idx].Clone(), nil
}

// Query фильтрует и сортирует снимок коллекции.
func (s *Store) Query(q Query) []domain.Order {
	started := time.Now()
	if q.Locale == language.Und {
		q.Locale = s.locale
	}
	result := FilterAndSort(s.Orders(), q)
	s.metrics.ObserveQuery("filter_sort", time.Since(started))
	return result
}

// Stats считает агрегаты панели по снимку коллекции.
func (s *Store) Stats() DashboardStats {
	started := time.Now()
	stats := ComputeDashboardStats(s.Orders())
	s.metrics.ObserveQuery("dashboard", time.Since(started))
	return stats
}

// Recent возвращает n последних добавленных заказов.
func (s *Store) Recent(n int) []domain.Order {
	return RecentOrders(s.Orders(), n)
}

func (s *Store) commitLocked(ctx context.Context, eventType string, order domain.Order) error {
	s.metrics.SetOrders(len(s.orders))

	if err := s.archive.Save(ctx, s.snapshotLocked()); err != nil {
		return err
	}
	s.enqueueLocked(eventType, order)
	return nil
}

func (s *Store) enqueueLocked(eventType string, order domain.Order) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(orderEvent{
		Order:      order,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("marshal order event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue order event failed")
	}
}

// finish публикует уведомление о результате мутации. Ошибка записи не откатывает
// изменение в памяти.
func (s *Store) finish(span trace.Span, op, id, message string, persistErr error) error {
	if persistErr != nil {
		s.logger.WithError(persistErr).WithFields(log.Fields{
			"op":       op,
			"order_id": id,
		}).Error("failed to persist orders")
		s.metrics.RecordSaveFailure()
		s.metrics.RecordMutation(op, metrics.ResultPersist)
		span.RecordError(persistErr)
		span.SetStatus(codes.Error, "persist failed")
		s.publish(MessagePersistFailed, notify.KindError)

		if !errors.Is(persistErr, domain.ErrPersistFailed) {
			persistErr = fmt.Errorf("%w: %w", domain.ErrPersistFailed, persistErr)
		}
		return persistErr
	}

	s.metrics.RecordMutation(op, metrics.ResultOK)
	s.publish(message, notify.KindSuccess)
	return nil
}

func (s *Store) reject(span trace.Span, op string, err error) {
	s.metrics.RecordMutation(op, metrics.ResultRejected)
	span.RecordError(err)
	span.SetStatus(codes.Error, "rejected")
}

func (s *Store) noop(span trace.Span, op, id string) {
	s.logger.WithFields(log.Fields{
		"op":       op,
		"order_id": id,
	}).Debug("order not found, nothing to do")
	s.metrics.RecordMutation(op, metrics.ResultNoop)
	span.SetAttributes(attribute.Bool("order.noop", true))
}

func (s *Store) publish(message string, kind notify.Kind) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(message, kind)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []domain.Order {
	out := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, order.Clone())
	}
	return out
}

func validate(order domain.Order) error {
	errs := order.ValidateInvariants()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidOrder, errors.Join(errs...))
}

// orderEvent: полезная нагрузка события изменения заказа в outbox.
type orderEvent struct {
	Order      domain.Order `json:"order"`
	OccurredAt time.Time    `json:"occurred_at"`
}
