package www

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) apiStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.CRMClient().GetStockReport(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, items)
}

func (h *Handlers) apiStudyList(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.CRMClient().GetStudyList(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, items)
}

func (h *Handlers) apiStudyMark(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.CRMClient().MarkStudyItem(r.Context(), action, id); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.engine.DB().AppendAudit("studiu", id, action, "", h.engine.Session().UserName())
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.engine.DB().ListAudit(limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}
