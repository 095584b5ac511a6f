package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/service/form"
	"github.com/vladislavdragonenkov/orderhub/internal/service/orders"
)

// ordersResponse: отфильтрованный список заказов.
type ordersResponse struct {
	Orders []domain.Order `json:"orders"`
	Count  int            `json:"count"`
}

// draftResponse: значения формы нового заказа.
type draftResponse struct {
	form.Draft
	Total decimal.Decimal `json:"total"`
}

// dashboardResponse: сводка панели.
type dashboardResponse struct {
	Stats               orders.DashboardStats `json:"stats"`
	Revenue             string                `json:"revenueLabel"`
	DeliveredPercentage string                `json:"deliveredLabel"`
	Recent              []domain.Order        `json:"recent"`
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	status, err := orders.ParseStatusFilter(params.Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sortBy, err := orders.ParseSortBy(params.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.store.Query(orders.Query{
		Search: params.Get("search"),
		Status: status,
		SortBy: sortBy,
	})
	if result == nil {
		result = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: result, Count: len(result)})
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *handler) orderDraft(w http.ResponseWriter, _ *http.Request) {
	draft := form.NewDraft(h.now())
	writeJSON(w, http.StatusOK, draftResponse{Draft: draft, Total: draft.Total()})
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var draft form.Draft
	if err := decodeBody(w, r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.form.Submit(r.Context(), draft, "")
	if err != nil {
		h.logMutationError(r, "create", err)
		writeMutationError(w, err)
		return
	}
	annotate(r, attribute.String("order.id", order.ID))
	writeJSON(w, http.StatusCreated, order)
}

func (h *handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.Get(id); err != nil {
		writeMutationError(w, err)
		return
	}

	var draft form.Draft
	if err := decodeBody(w, r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.form.Submit(r.Context(), draft, id)
	if err != nil {
		h.logMutationError(r, "update", err)
		writeMutationError(w, err)
		return
	}
	// Заказ мог быть удалён между проверкой и записью.
	if order.ID == "" {
		writeError(w, http.StatusNotFound, domain.ErrOrderNotFound.Error())
		return
	}
	annotate(r, attribute.String("order.id", order.ID))
	writeJSON(w, http.StatusOK, order)
}

func (h *handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.Remove(r.Context(), id); err != nil {
		h.logMutationError(r, "remove", err)
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) dashboard(w http.ResponseWriter, _ *http.Request) {
	stats := h.store.Stats()
	recent := h.store.Recent(dashboardRecent)
	if recent == nil {
		recent = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats:               stats,
		Revenue:             orders.FormatAmount(stats.Revenue),
		DeliveredPercentage: orders.FormatPercentage(stats.DeliveredPercentage()),
		Recent:              recent,
	})
}

func (h *handler) logMutationError(r *http.Request, op string, err error) {
	var validation *form.ValidationError
	if errors.As(err, &validation) {
		h.logger.WithFields(log.Fields{
			"op":    op,
			"field": validation.Field,
		}).Debug("order form rejected")
		return
	}
	h.logger.WithError(err).WithFields(log.Fields{
		"op":   op,
		"path": r.URL.Path,
	}).Warn("order mutation failed")
}
