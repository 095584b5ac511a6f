// Package httpapi публикует хранилище заказов, тему и уведомления через HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/orderhub/internal/notify"
	"github.com/vladislavdragonenkov/orderhub/internal/persistence"
	"github.com/vladislavdragonenkov/orderhub/internal/service/form"
	"github.com/vladislavdragonenkov/orderhub/internal/service/orders"
)

const (
	maxBodyBytes       = 1 << 20
	streamKeepAlive    = 15 * time.Second
	streamBufferSize   = 16
	dashboardRecent    = orders.RecentLimit
	prefersColorHeader = "Sec-CH-Prefers-Color-Scheme"
)

// Dependencies: компоненты, которые обслуживает роутер.
type Dependencies struct {
	Store  *orders.Store
	Form   *form.Controller
	Themes *persistence.ThemeStore
	Bus    *notify.Bus
	Tray   *notify.Tray
	Logger *log.Entry
	Tracer trace.Tracer
	Now    func() time.Time
}

type handler struct {
	store  *orders.Store
	form   *form.Controller
	themes *persistence.ThemeStore
	bus    *notify.Bus
	tray   *notify.Tray
	logger *log.Entry
	tracer trace.Tracer
	now    func() time.Time
}

// NewRouter собирает маршруты /api поверх gorilla/mux.
func NewRouter(deps Dependencies) http.Handler {
	h := &handler{
		store:  deps.Store,
		form:   deps.Form,
		themes: deps.Themes,
		bus:    deps.Bus,
		tray:   deps.Tray,
		logger: deps.Logger,
		tracer: deps.Tracer,
		now:    deps.Now,
	}
	if h.logger == nil {
		h.logger = log.WithField("component", "httpapi")
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer("github.com/vladislavdragonenkov/orderhub/internal/transport/httpapi")
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := mux.NewRouter()
	r.Use(h.traceMiddleware, h.loggingMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	api := r.PathPrefix("/api").Subrouter()

	// /orders/draft регистрируется раньше /orders/{id}.
	api.HandleFunc("/orders/draft", h.orderDraft).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", h.updateOrder).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}", h.deleteOrder).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard", h.dashboard).Methods(http.MethodGet)

	api.HandleFunc("/theme", h.getTheme).Methods(http.MethodGet)
	api.HandleFunc("/theme", h.setTheme).Methods(http.MethodPut)
	api.HandleFunc("/theme/toggle", h.toggleTheme).Methods(http.MethodPost)

	api.HandleFunc("/notifications/stream", h.streamNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}", h.dismissNotification).Methods(http.MethodDelete)

	return r
}
