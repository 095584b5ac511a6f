package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vladislavdragonenkov/orderhub/internal/notify"
)

func (h *handler) listNotifications(w http.ResponseWriter, _ *http.Request) {
	visible := h.tray.Visible()
	if visible == nil {
		visible = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (h *handler) dismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.tray.Dismiss(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamNotifications отдаёт уведомления шины как Server-Sent Events.
// Подписка живёт ровно столько, сколько соединение.
func (h *handler) streamNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events := make(chan notify.Notification, streamBufferSize)
	sub := h.bus.Subscribe(func(n notify.Notification) {
		select {
		case events <- n:
		default:
			h.logger.WithField("notification_id", n.ID).Warn("notification stream is slow, dropping event")
		}
	})
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case n := <-events:
			if err := writeEvent(w, n); err != nil {
				h.logger.WithError(err).Debug("notification stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, n notify.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, data)
	return err
}
