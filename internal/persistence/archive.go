// Package persistence хранит коллекцию заказов и настройки интерфейса в key-value хранилище.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
)

// OrdersKey: единственный ключ, под которым лежит вся коллекция заказов.
const OrdersKey = "orders"

// ArchiveOptions задаёт параметры OrderArchive.
type ArchiveOptions struct {
	Logger  *log.Entry
	Metrics *metrics.StoreMetrics
}

// ArchiveOption настраивает OrderArchive.
type ArchiveOption func(*ArchiveOptions)

// WithLogger задаёт logger архива.
func WithLogger(logger *log.Entry) ArchiveOption {
	return func(opts *ArchiveOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики ошибок чтения.
func WithMetrics(m *metrics.StoreMetrics) ArchiveOption {
	return func(opts *ArchiveOptions) {
		opts.Metrics = m
	}
}

// OrderArchive читает и пишет коллекцию заказов целиком одним JSON-массивом.
type OrderArchive struct {
	kv      domain.KeyValueStore
	logger  *log.Entry
	metrics *metrics.StoreMetrics
}

// NewOrderArchive создаёт архив поверх key-value хранилища.
func NewOrderArchive(kv domain.KeyValueStore, options ...ArchiveOption) *OrderArchive {
	var opts ArchiveOptions
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-archive")
	}

	return &OrderArchive{
		kv:      kv,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Load возвращает сохранённые заказы. Отсутствующие, нечитаемые или повреждённые
// данные дают пустую коллекцию: ошибка только логируется.
func (a *OrderArchive) Load(ctx context.Context) []domain.Order {
	data, err := a.kv.Get(ctx, OrdersKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return []domain.Order{}
	}
	if err != nil {
		a.logger.WithError(err).Warn("failed to read stored orders, starting with empty collection")
		a.metrics.RecordLoadFailure()
		return []domain.Order{}
	}

	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		a.logger.WithError(err).WithField("bytes", len(data)).Warn("stored orders are not valid JSON, starting with empty collection")
		a.metrics.RecordLoadFailure()
		return []domain.Order{}
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	return orders
}

// Save перезаписывает сохранённую коллекцию. Сериализация выполняется до записи,
// поэтому ошибка маршалинга не затирает прежнее значение.
func (a *OrderArchive) Save(ctx context.Context, orders []domain.Order) error {
	if orders == nil {
		orders = []domain.Order{}
	}

	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("%w: marshal orders: %w", domain.ErrPersistFailed, err)
	}
	if err := a.kv.Set(ctx, OrdersKey, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}

	return nil
}

// Ping проверяет доступность нижележащего хранилища.
func (a *OrderArchive) Ping(ctx context.Context) error {
	return a.kv.Ping(ctx)
}
