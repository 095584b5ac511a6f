package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label result.
const (
	ResultOK       = "ok"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
	ResultPersist  = "persist_error"

	NotificationDelivered = "delivered"
	NotificationRetried   = "retried"
	NotificationDropped   = "dropped"
)

// StoreMetrics содержит метрики хранилища заказов и шины уведомлений.
// Nil-значение допустимо: все методы становятся no-op.
type StoreMetrics struct {
	mutations           *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	orders              prometheus.Gauge
	queryDuration       *prometheus.HistogramVec
	notifications       *prometheus.CounterVec
}

// NewStoreMetrics регистрирует метрики в глобальном registry Prometheus.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer регистрирует метрики в переданном registry.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		mutations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_store_mutations_total",
			Help: "Total number of order mutations grouped by operation and result",
		}, []string{"op", "result"})),
		persistenceFailures: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_persistence_failures_total",
			Help: "Total number of failed reads or writes of the persisted order collection",
		}, []string{"op"})),
		orders: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderhub_orders",
			Help: "Number of orders currently held by the store",
		})),
		queryDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderhub_query_duration_seconds",
			Help:    "Duration of filter/sort and dashboard aggregate queries in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"query"})),
		notifications: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_notifications_total",
			Help: "Total number of published notifications grouped by delivery result",
		}, []string{"result"})),
	}
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// RecordMutation учитывает мутацию (create/update/remove) с её результатом.
func (m *StoreMetrics) RecordMutation(op, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// RecordLoadFailure учитывает нечитаемые или повреждённые данные при загрузке.
func (m *StoreMetrics) RecordLoadFailure() {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues("load").Inc()
}

// RecordSaveFailure учитывает неудачную запись коллекции.
func (m *StoreMetrics) RecordSaveFailure() {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues("save").Inc()
}

// SetOrders выставляет текущее количество заказов.
func (m *StoreMetrics) SetOrders(count int) {
	if m == nil {
		return
	}
	m.orders.Set(float64(count))
}

// ObserveQuery записывает длительность запроса.
func (m *StoreMetrics) ObserveQuery(query string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordNotification учитывает результат доставки уведомления.
func (m *StoreMetrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}
