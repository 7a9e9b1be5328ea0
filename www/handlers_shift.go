package www

import (
	"net/http"
)

// apiTimer reports the shift timer state from the CRM.
func (h *Handlers) apiTimer(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.CRMClient().GetTimesheet(r.Context(), h.engine.Session().UserID())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, map[string]any{
		"running": ts.Running,
		"minutes": ts.Minutes,
		"polling": h.engine.Poller().Running(),
	})
}

func (h *Handlers) apiTimerStart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.StartShift(r.Context()); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, map[string]string{"status": "started"})
}

func (h *Handlers) apiTimerStop(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.StopShift(r.Context()); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, map[string]string{"status": "stopped"})
}

func (h *Handlers) apiWorkHistory(w http.ResponseWriter, r *http.Request) {
	days, err := h.engine.CRMClient().GetWorkHistory(r.Context(), h.engine.Session().UserID())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, days)
}
