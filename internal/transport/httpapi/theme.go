package httpapi

import (
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/orderhub/internal/persistence"
)

type themeBody struct {
	Theme string `json:"theme"`
}

// prefersDark читает клиентскую подсказку о системной теме.
func prefersDark(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(prefersColorHeader)), "dark")
}

func (h *handler) getTheme(w http.ResponseWriter, r *http.Request) {
	theme := h.themes.Load(r.Context(), prefersDark(r))
	writeJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}

func (h *handler) setTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	theme, err := persistence.ParseTheme(body.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.themes.Set(r.Context(), theme); err != nil {
		h.logger.WithError(err).Warn("theme not saved")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}

func (h *handler) toggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.themes.Toggle(r.Context(), prefersDark(r))
	if err != nil {
		h.logger.WithError(err).Warn("theme not saved")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}
