package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
	"github.com/vladislavdragonenkov/orderhub/internal/notify"
	"github.com/vladislavdragonenkov/orderhub/internal/persistence"
	"github.com/vladislavdragonenkov/orderhub/internal/service/form"
	"github.com/vladislavdragonenkov/orderhub/internal/service/orders"
	"github.com/vladislavdragonenkov/orderhub/internal/transport/httpapi"
)

// orderRuntime связывает хранилище заказов, шину уведомлений и HTTP-оболочку.
type orderRuntime struct {
	bus    *notify.Bus
	tray   *notify.Tray
	store  *orders.Store
	themes *persistence.ThemeStore
	router http.Handler
}

// newOrderRuntime загружает коллекцию и собирает компоненты вокруг kv.
// outboxRepo может быть nil: тогда события заказов никуда не пишутся.
func newOrderRuntime(ctx context.Context, cfg Config, kv domain.KeyValueStore, outboxRepo domain.OutboxRepository, registerer prometheus.Registerer, logger *log.Entry) *orderRuntime {
	storeMetrics := metrics.NewStoreMetricsWithRegisterer(registerer)

	bus := notify.NewBus(
		notify.WithLogger(logger.WithField("component", "notify-bus")),
		notify.WithMetrics(storeMetrics),
		notify.WithRetryDelay(cfg.NotifyRetryDelay),
	)
	tray := notify.NewTray(cfg.ToastTTL)
	tray.Attach(bus)

	archive := persistence.NewOrderArchive(kv,
		persistence.WithLogger(logger.WithField("component", "order-archive")),
		persistence.WithMetrics(storeMetrics),
	)

	storeOptions := []orders.Option{
		orders.WithLogger(logger.WithField("component", "order-store")),
		orders.WithMetrics(storeMetrics),
		orders.WithLocale(parseLocale(cfg.Locale, logger)),
	}
	if outboxRepo != nil {
		storeOptions = append(storeOptions, orders.WithOutbox(outboxRepo))
	}
	store := orders.NewStore(ctx, archive, bus, storeOptions...)

	formLogger := logger.WithField("component", "order-form")
	controller := form.NewController(store, form.NewIDGenerator(nil), formLogger)
	themes := persistence.NewThemeStore(kv, logger.WithField("component", "theme-store"))

	return &orderRuntime{
		bus:    bus,
		tray:   tray,
		store:  store,
		themes: themes,
		router: httpapi.NewRouter(httpapi.Dependencies{
			Store:  store,
			Form:   controller,
			Themes: themes,
			Bus:    bus,
			Tray:   tray,
			Logger: logger.WithField("component", "http-api"),
		}),
	}
}

// close отменяет таймеры уведомлений; хранилище закрывается отдельно.
func (r *orderRuntime) close() {
	if r == nil {
		return
	}
	r.tray.Close()
	r.bus.Close()
}

func parseLocale(raw string, logger *log.Entry) language.Tag {
	if raw == "" {
		return language.Und
	}
	tag, err := language.Parse(raw)
	if err != nil {
		logger.WithError(err).WithField("locale", raw).Warn("unknown locale, using root collation")
		return language.Und
	}
	return tag
}
