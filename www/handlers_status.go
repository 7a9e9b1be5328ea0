package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"atelier/crm"
)

var knownZones = map[string]bool{
	crm.ZoneGravare:        true,
	crm.ZoneLegatorie:      true,
	crm.ZoneProductie:      true,
	crm.ZoneDPD:            true,
	crm.ZoneFAN:            true,
	crm.ZoneAprobareClient: true,
	crm.ZoneProcesare:      true,
	crm.ZoneOnHold:         true,
	crm.ZonePending:        true,
}

func (h *Handlers) apiSelectZone(w http.ResponseWriter, r *http.Request) {
	zone := chi.URLParam(r, "zone")
	if !knownZones[zone] {
		h.jsonError(w, "unknown zone", http.StatusBadRequest)
		return
	}
	if err := h.engine.SelectZone(zone); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok", "zone": zone})
}

// apiStatus returns the last known counters for the active zone. Counters
// may be cached; the feed only chases fresh ones.
func (h *Handlers) apiStatus(w http.ResponseWriter, r *http.Request) {
	zone := h.engine.Feed().Zone()
	snap := h.engine.ZoneState().Get(r.Context(), zone)
	h.jsonOK(w, map[string]any{
		"zone":       zone,
		"statusuri":  snap.Counts,
		"from_cache": snap.FromCache,
		"polling":    h.engine.Poller().Running(),
	})
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	crmOK := false
	if err := h.engine.CRMClient().Ping(r.Context()); err == nil {
		crmOK = true
	}
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"crm":       crmOK,
		"messaging": h.engine.MsgClient().IsConnected(),
		"polling":   h.engine.Poller().Running(),
	})
}
